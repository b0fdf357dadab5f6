package cli

import (
	"log/slog"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/alecthomas/kong"

	actx "go.hackfix.me/forage/app/context"
)

// CLI is the command line interface of forage.
type CLI struct {
	kong *kong.Kong
	kctx *kong.Context

	Get     Get     `kong:"cmd,help='Get the value of a key.'"`
	Set     Set     `kong:"cmd,help='Set the value of a key.'"`
	Rm      Rm      `kong:"cmd,help='Remove a key.'"`
	Ls      Ls      `kong:"cmd,help='List keys in insertion order.'"`
	Len     Len     `kong:"cmd,help='Print the number of stored keys.'"`
	Clear   Clear   `kong:"cmd,help='Remove all keys.'"`
	Dump    Dump    `kong:"cmd,help='Print all entries in insertion order.'"`
	Serve   Serve   `kong:"cmd,help='Start the HTTP API server.'"`
	Version Version `kong:"cmd,help='Print the forage version.'"`

	Name          string     `kong:"default='forage',help='Name of the storage instance. It prefixes all keys, isolating instances that share a store.'"`
	Store         string     `kong:"enum='memory,badger,bolt,sqlite,redis',default='badger',help='Backing store. Valid values: ${enum}'"`
	DataDir       string     `kong:"default='${dataDir}',help='Directory of the file-based stores.'"`
	Serialization string     `kong:"enum='default,none,sealed',default='default',help='Value serialization. JSON with default, raw strings with none, or encrypted JSON with sealed. Valid values: ${enum}'"`
	EncryptionKey string     `kong:"help='Hex-encoded 32-byte key. Required by the sealed serialization. When used with the badger store, it also enables encryption at rest.'"`
	Redis         RedisFlags `kong:"embed,prefix='redis-'"`
	Remote        string     `kong:"help='Address of a forage server to use instead of the backing store.'"`
	LogLevel      slog.Level `kong:"default='INFO',help='Set the app logging level.'"`
}

// RedisFlags are the connection options of the redis store.
type RedisFlags struct {
	Address  string `kong:"default='localhost:6379',help='Redis server address.'"`
	Password string `kong:"help='Redis password.'"`
	DB       int    `kong:"default='0',help='Redis database number.'"`
	TLS      bool   `kong:"help='Connect to the Redis server over TLS.'"`
}

// Setup the command-line interface.
func (c *CLI) Setup(appCtx *actx.Context, name string, exit func(int)) error {
	opts := []kong.Option{
		kong.Name(name),
		kong.Description("A key-value storage tool with pluggable backing stores."),
		kong.UsageOnError(),
		kong.DefaultEnvars("FORAGE"),
		kong.Exit(exit),
		kong.Writers(appCtx.Stdout, appCtx.Stderr),
		kong.Vars{"dataDir": filepath.Join(xdg.DataHome, "forage")},
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
	}
	if appCtx.Env != nil {
		opts = append(opts, kong.Resolvers(envResolver(appCtx.Env)))
	}

	var err error
	c.kong, err = kong.New(c, opts...)

	return err
}

// envResolver resolves flag values from the FORAGE_* variables of env. Values
// passed on the command line take precedence.
func envResolver(env actx.Environment) kong.Resolver {
	return kong.ResolverFunc(func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		for _, name := range flag.Envs {
			if val := env.Get(name); val != "" {
				return val, nil
			}
		}
		return nil, nil
	})
}

// Parse the command-line arguments.
func (c *CLI) Parse(args []string) error {
	var err error
	c.kctx, err = c.kong.Parse(args)

	return err
}

// NeedsStorage returns true if the selected command operates on stored data.
func (c *CLI) NeedsStorage() bool {
	if c.kctx == nil || c.kctx.Selected() == nil {
		return false
	}

	return c.kctx.Selected().Name != "version"
}

// Execute runs the selected command.
func (c *CLI) Execute(appCtx *actx.Context) error {
	return c.kctx.Run(appCtx)
}
