package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"

	"github.com/dmitrijs2005/mailproof/internal/buildinfo"
	"github.com/dmitrijs2005/mailproof/internal/client/config"
	"github.com/dmitrijs2005/mailproof/internal/server/keystore"
	"github.com/dmitrijs2005/mailproof/internal/server/repositories/keys"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitNegative = 1
	ExitError    = 2
)

var errUsage = errors.New("usage error")

type command struct {
	summary string
	run     func(ctx context.Context, args []string) (int, error)
}

type App struct {
	config *config.Config
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer
	client *http.Client

	commands map[string]command
}

func NewApp(c *config.Config) *App {
	return newApp(c, os.Stdin, os.Stdout, os.Stderr)
}

func newApp(c *config.Config, in io.Reader, out, errOut io.Writer) *App {
	a := &App{
		config: c,
		reader: bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		client: &http.Client{Timeout: c.RequestTimeout},
	}
	a.commands = map[string]command{
		"keygen":  {"create or load an identity keypair", a.keygen},
		"pubkey":  {"print an identity's stored public key", a.pubkey},
		"sign":    {"issue and sign a proof token", a.sign},
		"verify":  {"verify a signature locally or on the server", a.verify},
		"encrypt": {"encrypt a short message to an identity's key (RSA-OAEP)", a.encrypt},
		"decrypt": {"decrypt an encrypt ciphertext with the stored key", a.decrypt},
		"token":   {"mint an access token for an identity", a.token},
		"send":    {"sign and send a message through the server", a.send},
		"version": {"print build data", func(context.Context, []string) (int, error) {
			buildinfo.PrintBuildData(a.out)
			return ExitOK, nil
		}},
	}
	return a
}

// Run executes the subcommand in args and returns the exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage()
		if len(args) == 0 {
			return ExitError
		}
		return ExitOK
	}

	cmd, ok := a.commands[args[0]]
	if !ok {
		fmt.Fprintf(a.errOut, "unknown command %q\n", args[0])
		a.usage()
		return ExitError
	}

	code, err := cmd.run(ctx, args[1:])
	if err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(a.errOut, "error: %v\n", err)
		}
		return ExitError
	}
	return code
}

func (a *App) usage() {
	fmt.Fprintln(a.errOut, "usage: mailproof-cli [-a url] [-k dir] [-s secret] [-t seconds] [-c file] <command> [flags]")
	fmt.Fprintln(a.errOut, "commands:")

	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.errOut, "  %-8s %s\n", name, a.commands[name].summary)
	}
}

// flagSet returns a FlagSet that reports errors to errOut.
func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *App) keyStore() (*keystore.KeyStore, error) {
	repo, err := keys.NewFileRepository(a.config.KeyDir)
	if err != nil {
		return nil, err
	}
	return keystore.New(repo), nil
}

func (a *App) requireFlag(fs *flag.FlagSet, name, value string) error {
	if value == "" {
		fmt.Fprintf(a.errOut, "%s: -%s is required\n", fs.Name(), name)
		fs.Usage()
		return errUsage
	}
	return nil
}
