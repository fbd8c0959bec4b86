package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/crawlgate/internal/logging"
	"github.com/rohmanhakim/crawlgate/internal/scheduler"
)

var checkAgent string

var checkCmd = &cobra.Command{
	Use:   "check <url>...",
	Short: "Print the robots and admission verdict for each URL",
	Long: `check runs every URL through robots.txt and the admission gate in order,
exactly as a crawler would, and prints one line per URL. URLs sharing an
origin compete for the same admission slots.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}

		logger, err := logging.New(cfg.DevelopmentLog())
		if err != nil {
			return fmt.Errorf("error initializing logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		svc := newServices(cfg, logger, nil, nil)
		verdicts := runChecks(cmd.Context(), svc.scheduler, args, checkAgent)
		return printVerdicts(cmd, verdicts)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkAgent, "agent", "", "robots.txt agent to evaluate (default: product token of --user-agent)")
}

func runChecks(ctx context.Context, s *scheduler.Scheduler, urls []string, agent string) []scheduler.Verdict {
	if ctx == nil {
		ctx = context.Background()
	}
	verdicts := make([]scheduler.Verdict, 0, len(urls))
	for _, rawURL := range urls {
		verdicts = append(verdicts, s.SubmitUrlForAgent(ctx, rawURL, agent))
	}
	return verdicts
}

func printVerdicts(cmd *cobra.Command, verdicts []scheduler.Verdict) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "URL\tROBOTS\tCODE\tADMISSION\tRETRY AFTER")
	for _, v := range verdicts {
		robotsColumn := "allow"
		if !v.Permitted {
			robotsColumn = "deny"
		}
		admissionColumn := "-"
		retryColumn := "-"
		if v.Permitted {
			admissionColumn = "granted"
			if !v.Granted {
				admissionColumn = "wait"
				retryColumn = v.RetryAfter.String()
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.URL, robotsColumn, v.Robots.Code, admissionColumn, retryColumn)
	}
	return w.Flush()
}
