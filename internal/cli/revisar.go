package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/demusis/rev-textos/internal/config"
	"github.com/demusis/rev-textos/internal/extract"
	"github.com/demusis/rev-textos/internal/gateway"
	"github.com/demusis/rev-textos/internal/pipeline"
	"github.com/demusis/rev-textos/internal/store"
)

var revisarCmd = &cobra.Command{
	Use:   "revisar <arquivo>",
	Short: "Revisa um documento e gera os relatórios",
	Long: `Executa o pipeline completo sobre o documento: extração de seções,
fases de revisão até a convergência, validação, verificação de
consistência e síntese, salvando os relatórios no diretório de saída.

Formatos aceitos: Markdown (.md, .markdown), LaTeX (.tex) e texto (.txt).`,
	Args: cobra.ExactArgs(1),
	RunE: runRevisar,
}

func init() {
	revisarCmd.Flags().StringSliceP("format", "f", nil, "report formats: markdown, html (repeatable)")
	revisarCmd.Flags().Bool("mock", false, "run without calling any AI provider")
	revisarCmd.Flags().IntP("workers", "w", 0, "parallel sections per phase (0 keeps config value)")
	revisarCmd.Flags().StringP("output", "o", "", "report output directory (overrides config)")
}

func runRevisar(cmd *cobra.Command, args []string) error {
	logger := setupLogging(cmd)

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if mock, _ := cmd.Flags().GetBool("mock"); mock {
		cfg.Mock = true
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Workers = workers
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		cfg.OutputDir = output
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := gateway.New(ctx, gateway.Settings{
		Provider:          cfg.Provider,
		Model:             cfg.ModelName(),
		APIKey:            cfg.APIKey(),
		GCPProject:        cfg.GCPProject,
		GCPRegion:         cfg.GCPRegion,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Timeout:           time.Duration(cfg.TimeoutSeconds) * time.Second,
		Mock:              cfg.Mock,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	formats, _ := cmd.Flags().GetStringSlice("format")

	orch := pipeline.New(cfg, gw, extract.NewFileExtractor(logger), st, &consoleSink{out: cmd.OutOrStdout()}, logger)
	result := orch.Run(ctx, args[0], formats)

	printResult(cmd, result)
	if !result.Success {
		return errors.New(result.Message)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store {
	case "firestore":
		return store.NewFirestoreStore(ctx, cfg.GCPProject, "", logger)
	default:
		return store.NewJSONStore(cfg.DataDir, logger)
	}
}

func printResult(cmd *cobra.Command, result *pipeline.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	if !result.Success {
		fmt.Fprintln(out, errorStyle.Render("✗ revisão falhou: ")+result.Message)
		return
	}

	fmt.Fprintln(out, okStyle.Render("✓ "+result.Message))
	if result.Document != nil {
		fmt.Fprintf(out, "  %s %d seções, %d apontamentos\n",
			dimStyle.Render("documento:"),
			len(result.Document.Sections),
			result.Document.TotalFindings())
	}
	for format, path := range result.Reports {
		fmt.Fprintf(out, "  %s %s\n", dimStyle.Render("relatório "+format+":"), path)
	}
}
