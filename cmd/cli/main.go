package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/parsely/flipcards/internal/app"
	"github.com/parsely/flipcards/internal/config"
	"github.com/parsely/flipcards/internal/logging"
	"github.com/parsely/flipcards/internal/tui"
)

var (
	cfgFile string
	v       = viper.New()

	rootCmd = &cobra.Command{
		Use:   "flipcards",
		Short: "Vocabulary flip cards in the terminal",
		Long: `Flipcards keeps vocabulary cards with meanings, idioms and examples,
shows them as flip cards and walks through them in random review order.

Run without arguments to open the interactive terminal UI.`,
		SilenceUsage: true,
		RunE:         runTUI,
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Print stored cards",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	exportCmd = &cobra.Command{
		Use:   "export [path]",
		Short: "Export cards to a JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExport,
	}

	importCmd = &cobra.Command{
		Use:   "import <file>",
		Short: "Import cards from a TXT, PDF or DOCX file (one 'word = definition | example' per line)",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	deleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored card",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}

	speakCmd = &cobra.Command{
		Use:   "speak <text...>",
		Short: "Pronounce text with the configured speech engine",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSpeak,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.flipcards.yaml)")
	flags.String("db", "", "card database path")
	flags.String("env", "", "environment: development or production")
	flags.String("speech-engine", "", "speech engine: espeak, openai or none")
	flags.String("voice", "", "espeak-ng voice")
	flags.String("log-file", "", "write logs to this file")

	if err := bindFlags(v, flags, map[string]string{
		"db.path":       "db",
		"env":           "env",
		"speech.engine": "speech-engine",
		"speech.voice":  "voice",
		"log.file":      "log-file",
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd.AddCommand(listCmd, exportCmd, importCmd, deleteCmd, speakCmd)
}

// bindFlags binds config keys to the named flags
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// open loads configuration and the card store. The TUI owns the terminal, so it always logs to a file.
func open(tuiMode bool) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load(v, config.Options{ConfigFile: cfgFile})
	if err != nil {
		return nil, nil, err
	}

	logFile := cfg.Log.File
	if tuiMode {
		logFile = cfg.TUILogFile()
	}
	log := logging.Must(cfg.Env, logFile)

	a, err := app.Open(cfg, log)
	if err != nil {
		log.Sync()
		return nil, nil, err
	}
	return a, log, nil
}

func closeApp(a *app.App, log *zap.Logger) {
	if err := a.Close(); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Sync()
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, log, err := open(true)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	p := tea.NewProgram(tui.New(cmd.Context(), a.Service, log), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, log, err := open(false)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	cards := a.Service.ListCards()
	out := cmd.OutOrStdout()
	if len(cards) == 0 {
		fmt.Fprintln(out, "No cards found.")
		return nil
	}
	for _, c := range cards {
		fmt.Fprintf(out, "%d %s (%d meanings, %d idioms)\n", c.ID, c.Word, len(c.Means), len(c.Idioms))
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	path := "vocabulary_export.json"
	if len(args) == 1 {
		path = args[0]
	}

	a, log, err := open(false)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	if err := a.Service.ExportCards(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d cards to %s\n", len(a.Service.ListCards()), path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	a, log, err := open(false)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	result, err := a.Service.ImportDocument(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cards added: %d\n", result.Added)
	fmt.Fprintf(out, "Duplicates skipped: %d\n", result.Duplicates)
	fmt.Fprintf(out, "Invalid lines: %d\n", result.Invalid)
	fmt.Fprintf(out, "Total processed: %d\n", result.TotalProcessed)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}

	a, log, err := open(false)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	if err := a.Service.DeleteCard(id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted card %d\n", id)
	return nil
}

func runSpeak(cmd *cobra.Command, args []string) error {
	a, log, err := open(false)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	a.Service.Speak(strings.Join(args, " "))
	a.WaitSpeech()
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
