package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stellarlinkco/greetbot/internal/config"
	"github.com/stellarlinkco/greetbot/internal/dialog"
	"github.com/stellarlinkco/greetbot/internal/gateway"
	"github.com/stellarlinkco/greetbot/internal/logging"
	"github.com/stellarlinkco/greetbot/internal/notify"
	"github.com/stellarlinkco/greetbot/internal/taxonomy"
)

// ChatOptions for running the console wizard with custom dependencies
type ChatOptions struct {
	BackendFactory gateway.BackendFactory
	Logger         *zap.Logger
	Stdin          io.Reader
	Stdout         io.Writer
}

var rootCmd = &cobra.Command{
	Use:          "greetbot",
	Short:        "greetbot - greeting card wizard for Telegram",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"gateway"},
	Short:   "Start the bot (channels + maintenance jobs)",
	RunE:    runGateway,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Walk through the wizard in the terminal",
	RunE:  runChat,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Create the default config",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show greetbot status",
	RunE:  runStatus,
}

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Validate and print the category tree",
	RunE:  runTaxonomy,
}

var taxonomyFileFlag string

func init() {
	taxonomyCmd.Flags().StringVarP(&taxonomyFileFlag, "file", "f", "", "Taxonomy YAML file (default: configured or built-in)")
	rootCmd.AddCommand(runCmd, chatCmd, onboardCmd, statusCmd, taxonomyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("API key not set. Run 'greetbot onboard' or set GREETBOT_API_KEY / OPENAI_API_KEY")
	}
	if !cfg.Channels.Telegram.Enabled {
		return fmt.Errorf("no channel enabled: set channels.telegram.enabled and a bot token")
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	gw, err := gateway.NewWithOptions(cfg, gateway.Options{Logger: log})
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	return gw.Run(cmd.Context())
}

func runChat(cmd *cobra.Command, args []string) error {
	return runChatWithOptions(cmd.Context(), ChatOptions{})
}

// runChatWithOptions runs the wizard on stdin/stdout with injectable
// dependencies for testing
func runChatWithOptions(ctx context.Context, opts ChatOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := opts.Logger
	if log == nil {
		// Only warnings reach stderr while the dialog owns the terminal.
		quiet := cfg.Log
		quiet.Level = "warn"
		if log, err = logging.New(quiet); err != nil {
			return err
		}
	}

	factory := opts.BackendFactory
	if factory == nil {
		factory = gateway.DefaultBackendFactory
	}
	backend, err := factory(cfg, log)
	if err != nil {
		return err
	}

	core, err := gateway.NewCore(cfg, backend, notify.Nop{}, nil, log)
	if err != nil {
		return err
	}

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	repl := &console{machine: core.Machine, out: stdout}
	fmt.Fprintln(stdout, "greetbot chat (type a number to choose, 'exit' to quit)")
	repl.handle(ctx, dialog.SessionStarted{})

	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		repl.handle(ctx, repl.parse(input))
	}
	fmt.Fprintln(stdout)
	return scanner.Err()
}

const consoleUser = "console:local"

// console renders screens as text and maps numbered choices back to events.
type console struct {
	machine *dialog.Machine
	out     io.Writer
	options []dialog.Option
}

func (c *console) handle(ctx context.Context, ev dialog.Event) {
	c.machine.HandleFunc(ctx, consoleUser, ev, c.render)
}

func (c *console) render(s dialog.Screen) {
	switch s.Kind {
	case dialog.KindError:
		fmt.Fprintf(c.out, "\n! %s\n", s.Text)
	case dialog.KindProgress:
		fmt.Fprintf(c.out, "\n... %s\n", s.Text)
	default:
		fmt.Fprintf(c.out, "\n%s\n", s.Text)
	}
	if len(s.Options) == 0 {
		return
	}
	c.options = s.Options
	for i, o := range s.Options {
		fmt.Fprintf(c.out, "  %d) %s\n", i+1, o.Label)
	}
}

// parse turns a line of input into an event: a menu number, a command or
// free text.
func (c *console) parse(input string) dialog.Event {
	switch input {
	case "/start":
		return dialog.SessionStarted{}
	case "/menu", "/restart":
		return dialog.RestartRequested{}
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(c.options) {
		ev, err := dialog.DecodeAction(c.options[n-1].Key)
		if err != nil {
			return dialog.InvalidInput{Raw: input}
		}
		return ev
	}
	return dialog.TextEntered{Text: input}
}

func runOnboard(cmd *cobra.Command, args []string) error {
	return onboard(cmd.OutOrStdout())
}

func onboard(w io.Writer) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		cfg.Operator.Channel = "telegram"
		if err := config.SaveConfig(cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(w, "Created config: %s\n", cfgPath)
	} else {
		fmt.Fprintf(w, "Config already exists: %s\n", cfgPath)
	}

	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintf(w, "  1. Edit %s to set provider.apiKey and channels.telegram.token\n", cfgPath)
	fmt.Fprintln(w, "  2. Or set GREETBOT_API_KEY and TELEGRAM_TOKEN (a .env file works too)")
	fmt.Fprintln(w, "  3. Run 'greetbot chat' to try the wizard in the terminal")
	fmt.Fprintln(w, "  4. Run 'greetbot run' to start the Telegram bot")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	return status(cmd.OutOrStdout())
}

func status(w io.Writer) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(w, "Config: error (%v)\n", err)
		return nil
	}

	fmt.Fprintf(w, "Config: %s\n", config.ConfigPath())
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(w, "Config: %v\n", err)
	}
	fmt.Fprintf(w, "Provider: %s\n", cfg.Provider.Type)
	fmt.Fprintf(w, "Model: %s\n", cfg.Generation.Model)
	fmt.Fprintf(w, "API Key: %s\n", mask(cfg.Provider.APIKey))
	fmt.Fprintf(w, "Telegram: enabled=%v token=%s\n", cfg.Channels.Telegram.Enabled, mask(cfg.Channels.Telegram.Token))
	if cfg.Operator.ChatID != "" {
		fmt.Fprintf(w, "Operator chat: %s/%s\n", cfg.Operator.Channel, cfg.Operator.ChatID)
	} else {
		fmt.Fprintln(w, "Operator chat: not set (feedback is dropped)")
	}
	fmt.Fprintf(w, "Rate limit: %d per %s\n", cfg.RateLimit.Burst, cfg.RateLimit.Window)
	fmt.Fprintf(w, "Report: enabled=%v schedule=%q\n", cfg.Report.Enabled, cfg.Report.Schedule)

	catalog, err := gateway.LoadCatalog(cfg.Taxonomy)
	if err != nil {
		fmt.Fprintf(w, "Taxonomy: error (%v)\n", err)
		return nil
	}
	cats, subs, styles, sets := catalog.Counts()
	fmt.Fprintf(w, "Taxonomy: %s (%d categories, %d subcategories, %d styles, %d decoration sets)\n",
		taxonomySource(cfg.Taxonomy.Path), cats, subs, styles, sets)
	return nil
}

func mask(secret string) string {
	switch {
	case secret == "":
		return "not set"
	case len(secret) > 8:
		return secret[:4] + "..." + secret[len(secret)-4:]
	default:
		return "set"
	}
}

func taxonomySource(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}

func runTaxonomy(cmd *cobra.Command, args []string) error {
	path := taxonomyFileFlag
	if path == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = cfg.Taxonomy.Path
	}
	catalog, err := gateway.LoadCatalog(config.TaxonomyConfig{Path: path})
	if err != nil {
		return err
	}
	printTaxonomy(cmd.OutOrStdout(), catalog)
	return nil
}

func printTaxonomy(w io.Writer, c *taxonomy.Store) {
	fmt.Fprintln(w, "Categories:")
	for _, cat := range c.Categories() {
		switch {
		case cat.Kind == taxonomy.KindInfo:
			fmt.Fprintf(w, "  %s  %s  [info]\n", cat.ID, cat.Label)
		case cat.Kind == taxonomy.KindFeedback:
			fmt.Fprintf(w, "  %s  %s  [feedback]\n", cat.ID, cat.Label)
		case !c.HasSubcategories(cat.ID):
			label, _ := c.GenerationLabel(cat.ID)
			fmt.Fprintf(w, "  %s  %s  -> %q\n", cat.ID, cat.Label, label)
		default:
			fmt.Fprintf(w, "  %s  %s\n", cat.ID, cat.Label)
			for _, sub := range c.Subcategories(cat.ID) {
				fmt.Fprintf(w, "    %s  %s  -> %q\n", sub.ID, sub.Label, sub.Generation)
			}
		}
	}

	styles := c.Styles()
	if len(styles) == 0 {
		fmt.Fprintln(w, "Styles: none (style step skipped)")
		return
	}
	fmt.Fprintln(w, "Styles:")
	for _, s := range styles {
		fmt.Fprintf(w, "  %s  %s  -> %q\n", s.ID, s.Label, s.Tone)
	}
}
