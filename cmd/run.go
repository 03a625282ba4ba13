package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BetterCallFirewall/Revalidator/internal/assessment"
	"github.com/BetterCallFirewall/Revalidator/internal/driven"
	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/BetterCallFirewall/Revalidator/internal/output"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var in driven.Input
	var claimsFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an assessment (full pipeline or a single stage)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if claimsFile != "" {
				claims, err := readClaimsFile(claimsFile)
				if err != nil {
					return err
				}
				in.Claims = claims
			}
			if err := in.Validate(); err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store := openStore(ctx, cfg)
			defer store.Close()

			pipeline := driven.Assemble(cfg, newReasoner(ctx, cfg), store, nil)
			out, err := pipeline.Run(ctx, in)
			if out != nil {
				if printErr := printOutcome(cmd, out); printErr != nil {
					log.Warn().Err(printErr).Msg("⚠️ Printing summary failed")
				}
				if out.SavedFile != "" {
					log.Info().Str("file", out.SavedFile).Msg("💾 Result saved")
				}
				log.Info().Str("document_id", out.DocumentID).Msg("✅ Assessment finished")
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&in.Mode, "mode", driven.ModeFull, "Execution mode: full, reader, static, dynamic")
	flags.StringVar(&in.ReportPath, "report", "", "Security report (PDF, text or markdown)")
	flags.StringVar(&in.SourcePath, "source", "", "Source code directory for static analysis")
	flags.StringVar(&in.TargetURL, "target", "", "Target base URL for dynamic testing")
	flags.StringVar(&claimsFile, "claims", "", "JSON file with claims (replaces the report reader)")
	flags.StringVar(&in.OutputName, "output", "", "Also save the final result to this file name in the output directory")

	return cmd
}

func readClaimsFile(path string) ([]models.VulnerabilityClaim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read claims file: %w", err)
	}
	claims, ok := assessment.ExtractClaims(json.RawMessage(data))
	if !ok {
		return nil, errors.New("claims file holds no vulnerability list")
	}
	return claims, nil
}

func printOutcome(cmd *cobra.Command, out *driven.Outcome) error {
	w := cmd.OutOrStdout()
	switch {
	case out.Report != nil:
		return output.TableOutput(w, out.Report)
	case out.Dynamic != nil:
		return output.DynamicOutput(w, out.Dynamic)
	case out.Static != nil:
		return output.StaticOutput(w, out.Static)
	case out.Reader != nil:
		return output.ClaimsOutput(w, out.Reader)
	}
	return nil
}
