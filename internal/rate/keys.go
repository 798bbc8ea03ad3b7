package rate

func invalidTicketKey(prefix, ip string) string {
	return prefix + ":" + ip
}
