package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/burugo/ante"
)

// flushPrefixes are cleared by `cache flush` when no pattern is given.
var flushPrefixes = []string{
	ante.PrefixContentType,
	ante.PrefixContentTypes,
	ante.PrefixContentEntry,
	ante.PrefixQuery,
	ante.PrefixMedia,
	ante.PrefixConfig,
}

func init() {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the tenant cache",
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Print cache health and operation counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, cleanup, err := initializeCache(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			out := struct {
				ante.Health
				Counters map[string]int `json:"counters,omitempty"`
			}{
				Health:   cache.Health(cmd.Context()),
				Counters: cache.Client().GetCacheStats(cmd.Context()).Counters,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
			if !out.IsConnected {
				return fmt.Errorf("cache unavailable: %s", out.Error)
			}
			return nil
		},
	}

	var (
		tenant   string
		patterns []string
	)
	flushCmd := &cobra.Command{
		Use:   "flush",
		Short: "Invalidate cached entries of one tenant",
		Example: `  ante cache flush --tenant 16
  ante cache flush --tenant 16 --pattern 'query:{companyId}:*'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tenant == "" {
				return fmt.Errorf("--tenant is required")
			}
			parsed, err := flushPatterns(patterns)
			if err != nil {
				return err
			}

			cache, cleanup, err := initializeCache(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := cache.Invalidate(cmd.Context(), ante.TenantID(tenant), nil, parsed...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d keys for tenant %s\n", n, tenant)
			return nil
		},
	}
	flushCmd.Flags().StringVar(&tenant, "tenant", "", "Company ID whose entries are removed")
	flushCmd.Flags().StringArrayVar(&patterns, "pattern", nil, "Invalidation pattern containing {companyId} (repeatable)")

	cacheCmd.AddCommand(healthCmd, flushCmd)
	rootCmd.AddCommand(cacheCmd)
}

func flushPatterns(templates []string) ([]ante.Pattern, error) {
	if len(templates) == 0 {
		for _, prefix := range flushPrefixes {
			templates = append(templates,
				prefix+":{"+ante.ParamCompanyID+"}",
				prefix+":{"+ante.ParamCompanyID+"}:*")
		}
	}
	out := make([]ante.Pattern, 0, len(templates))
	for _, tmpl := range templates {
		p, err := ante.ParsePattern(tmpl)
		if err != nil {
			return nil, err
		}
		out = append(out, p.WithReason("manual flush"))
	}
	return out, nil
}
