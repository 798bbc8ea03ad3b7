// Command pubtkt-check verifies a single ticket against a configuration and
// prints the decision. It is meant for operators debugging login loops.
//
//	pubtkt-check --config pubtkt.yaml --ip 192.0.2.10 --path /admin '<ticket>'
//	pubtkt-check --key issuer.pem --digest sha256 < ticket.txt
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	goPubtkt "github.com/MrEthical07/goPubtkt"
	"github.com/MrEthical07/goPubtkt/signature"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

func main() {
	code, err := run(os.Args[1:], os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pubtkt-check: %v\n", err)
	}
	os.Exit(code)
}

type options struct {
	configPath string
	keyPath    string
	digest     string
	ip         string
	path       string
	at         int64
	lint       bool
	report     bool
	verbose    bool
}

// run returns 0 for a valid ticket, 1 for a rejected ticket and 2 for usage
// or setup errors.
func run(args []string, stdin io.Reader, stdout io.Writer) (int, error) {
	var opts options

	flagSet := pflag.NewFlagSet("pubtkt-check", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	flagSet.StringVar(&opts.keyPath, "key", "", "PEM public key (used when --config is not given)")
	flagSet.StringVar(&opts.digest, "digest", string(signature.DigestSHA1), "signature digest for RSA/ECDSA keys")
	flagSet.StringVar(&opts.ip, "ip", "", "requester IP address to check against the ticket")
	flagSet.StringVar(&opts.path, "path", "/", "request path used to select the directory policy")
	flagSet.Int64Var(&opts.at, "at", 0, "evaluate at this unix time instead of now")
	flagSet.BoolVar(&opts.lint, "lint", false, "print configuration lint warnings")
	flagSet.BoolVar(&opts.report, "report", false, "print the security report as YAML")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log verification details to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet)
			return 0, nil
		}
		return 2, err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stdout, flagSet)
		return 0, nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return 2, err
	}

	if opts.lint {
		for _, w := range cfg.Lint() {
			fmt.Fprintf(stdout, "lint %-4s %-24s %s\n", w.Severity, w.Code, w.Message)
		}
	}

	// The check tool never talks to Redis.
	cfg.SharedCache.Enabled = false
	cfg.Throttle.Enabled = false

	builder := goPubtkt.New().WithConfig(cfg)
	if opts.verbose {
		builder = builder.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if opts.at > 0 {
		fixed := time.Unix(opts.at, 0)
		builder = builder.WithClock(func() time.Time { return fixed })
	}
	engine, err := builder.Build()
	if err != nil {
		return 2, err
	}
	defer engine.Close()

	if opts.report {
		out, err := yaml.Marshal(engine.SecurityReport())
		if err != nil {
			return 2, err
		}
		fmt.Fprintf(stdout, "%s", out)
	}

	raw, err := readTicket(flagSet.Args(), stdin)
	if err != nil {
		return 2, err
	}
	if raw == "" {
		if opts.lint || opts.report {
			return 0, nil
		}
		return 2, errors.New("no ticket given")
	}

	dir := engine.Directory(opts.path)
	ctx := goPubtkt.WithRequestPath(context.Background(), opts.path)
	decision, err := engine.Authenticate(ctx, raw, opts.ip, dir.Policy())
	if err != nil {
		fmt.Fprintf(stdout, "result:    rejected\nerror:     %v\n", err)
		return 1, nil
	}

	t := decision.Ticket
	fmt.Fprintf(stdout, "result:    %s\n", decision.Result)
	fmt.Fprintf(stdout, "directory: %s\n", dir.Path)
	fmt.Fprintf(stdout, "uid:       %s\n", t.UID)
	if t.ClientIP != "" {
		fmt.Fprintf(stdout, "cip:       %s\n", t.ClientIP)
	}
	fmt.Fprintf(stdout, "validuntil: %s\n", time.Unix(int64(t.ValidUntil), 0).UTC().Format(time.RFC3339))
	if t.Tokens != "" {
		fmt.Fprintf(stdout, "tokens:    %s\n", strings.Join(t.TokenList(), ","))
	}
	if t.UserData != "" {
		fmt.Fprintf(stdout, "udata:     %s\n", t.UserData)
	}
	if !decision.Allowed() {
		return 1, nil
	}
	return 0, nil
}

func loadConfig(opts options) (goPubtkt.Config, error) {
	if opts.configPath != "" {
		return goPubtkt.LoadConfigFile(opts.configPath)
	}
	if opts.keyPath == "" {
		return goPubtkt.Config{}, errors.New("either --config or --key is required")
	}
	key, err := os.ReadFile(opts.keyPath)
	if err != nil {
		return goPubtkt.Config{}, fmt.Errorf("read key: %w", err)
	}
	cfg := goPubtkt.DefaultConfig()
	cfg.Server.PublicKey = key
	cfg.Server.Digest = opts.digest
	return cfg, nil
}

// readTicket takes the ticket from the first argument, or from the first
// line of stdin when the argument is "-" or absent and stdin is not a
// terminal. Cookie-encoded tickets are unescaped.
func readTicket(args []string, stdin io.Reader) (string, error) {
	var raw string
	switch {
	case len(args) > 1:
		return "", fmt.Errorf("unexpected argument: %s", args[1])
	case len(args) == 1 && args[0] != "-":
		raw = args[0]
	default:
		if f, ok := stdin.(*os.File); ok {
			if st, err := f.Stat(); err == nil && st.Mode()&os.ModeCharDevice != 0 {
				return "", nil
			}
		}
		sc := bufio.NewScanner(stdin)
		sc.Buffer(make([]byte, 0, 4096), 64*1024)
		if sc.Scan() {
			raw = sc.Text()
		}
		if err := sc.Err(); err != nil {
			return "", err
		}
	}

	raw = strings.Trim(strings.TrimSpace(raw), `"`)
	if strings.Contains(raw, "%") {
		if dec, err := url.PathUnescape(raw); err == nil {
			raw = dec
		}
	}
	return raw, nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `pubtkt-check verifies one ticket and prints the decision.

Usage:
  pubtkt-check [flags] [ticket|-]

The ticket is read from stdin when no argument is given. Exit status is 0
for a valid ticket, 1 for a rejected one and 2 for usage errors.

Flags:
%s`, flagSet.FlagUsages())
}
