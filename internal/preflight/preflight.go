package preflight

import "vidbatch/internal/config"

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the directory checks for the given config. The input
// directory only needs to be readable and is skipped when unset.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
	}
	if cfg.Paths.InputDir != "" {
		results = append(results, CheckDirectoryReadable("Input directory", cfg.Paths.InputDir))
	}
	return results
}
