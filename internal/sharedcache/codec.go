package sharedcache

import (
	"github.com/MrEthical07/goPubtkt/ticket"
	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding so identical records always MAC
// identically.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("sharedcache: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 16,
		MaxMapPairs:      16,
	}.DecMode()
	if err != nil {
		panic("sharedcache: CBOR decoder initialization failed: " + err.Error())
	}
}

type record struct {
	Raw        string `cbor:"1,keyasint"`
	UID        string `cbor:"2,keyasint"`
	ClientIP   string `cbor:"3,keyasint,omitempty"`
	ValidUntil uint64 `cbor:"4,keyasint"`
	Tokens     string `cbor:"5,keyasint,omitempty"`
	UserData   string `cbor:"6,keyasint,omitempty"`
}

func newRecord(raw string, t ticket.Ticket) record {
	return record{
		Raw:        raw,
		UID:        t.UID,
		ClientIP:   t.ClientIP,
		ValidUntil: t.ValidUntil,
		Tokens:     t.Tokens,
		UserData:   t.UserData,
	}
}

func (r record) ticket() ticket.Ticket {
	return ticket.Ticket{
		UID:        r.UID,
		ClientIP:   r.ClientIP,
		ValidUntil: r.ValidUntil,
		Tokens:     r.Tokens,
		UserData:   r.UserData,
	}
}
