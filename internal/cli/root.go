package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rev-textos",
	Short: "Revisão assistida por IA de documentos técnicos estruturados",
	Long: `rev-textos revisa documentos técnicos (laudos, relatórios, artigos)
por seção, em fases sucessivas de revisão gramatical, técnica e
estrutural, até a convergência de cada seção.

Exemplos:
  rev-textos revisar laudo.md
  rev-textos revisar laudo.md --format markdown --format html
  rev-textos revisar laudo.md --mock --workers 4
  rev-textos modelos`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(revisarCmd)
	rootCmd.AddCommand(modelosCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. Errors are printed here so main stays thin.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("erro: ")+err.Error())
		return err
	}
	return nil
}

func setupLogging(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
