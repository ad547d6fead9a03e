package api

import (
	"net/url"
	"time"

	"vidbatch/internal/batch"
	"vidbatch/internal/catalog"
	"vidbatch/internal/deps"
	"vidbatch/internal/encoding"
	"vidbatch/internal/logging"
)

// ResultsPath is the route prefix for output downloads.
const ResultsPath = "/api/results/"

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}

// FromSourceFile converts a catalog entry to its API representation.
func FromSourceFile(file catalog.SourceFile) SourceFile {
	duration := file.Duration
	if duration == "" {
		duration = catalog.UnknownDuration
	}
	return SourceFile{
		ID:              file.ID,
		Name:            file.Name,
		Path:            file.Path,
		SizeBytes:       file.SizeBytes,
		Duration:        duration,
		DurationSeconds: file.DurationSeconds,
		FPS:             file.FPS,
		Width:           file.Width,
		Height:          file.Height,
		Resolution:      file.Resolution(),
		Status:          string(file.Status),
		Error:           file.Error,
		DiscoveredAt:    formatTime(file.DiscoveredAt),
	}
}

// FromSourceFiles converts a slice of catalog entries. The result is never nil
// so the JSON payload is always an array.
func FromSourceFiles(files []catalog.SourceFile) []SourceFile {
	out := make([]SourceFile, 0, len(files))
	for _, file := range files {
		out = append(out, FromSourceFile(file))
	}
	return out
}

// FromBatchState converts a controller snapshot.
func FromBatchState(state batch.State) BatchState {
	phase := state.Phase
	if phase == "" {
		phase = batch.PhaseIdle
	}
	return BatchState{
		BatchID:         state.BatchID,
		Phase:           string(phase),
		Target:          Target{Resolution: state.Target.Resolution, FPS: state.Target.FPS},
		Total:           state.Total,
		Completed:       state.Completed,
		Failed:          state.Failed,
		CurrentFile:     state.CurrentFile,
		CurrentFileID:   state.CurrentFileID,
		ProgressPercent: state.ProgressPercent,
		Running:         state.Running,
		CancelRequested: state.CancelRequested,
		StartedAt:       formatTime(state.StartedAt),
		FinishedAt:      formatTime(state.FinishedAt),
	}
}

// FromResult converts a finished conversion.
func FromResult(result encoding.Result) ConversionResult {
	return ConversionResult{
		SourceID:         result.SourceID,
		SourceName:       result.SourceName,
		SourcePath:       result.SourcePath,
		OutputName:       result.OutputName,
		OutputPath:       result.OutputPath,
		DownloadURL:      ResultsPath + url.PathEscape(result.OutputName),
		InputBytes:       result.InputBytes,
		OutputBytes:      result.OutputBytes,
		ReductionPercent: result.ReductionPercent,
		Resolution:       result.Resolution,
		FPS:              result.FPS,
		ElapsedSeconds:   result.Elapsed.Seconds(),
		CompletedAt:      formatTime(result.CompletedAt),
	}
}

// FromResults converts a slice of results, never returning nil.
func FromResults(results []encoding.Result) []ConversionResult {
	out := make([]ConversionResult, 0, len(results))
	for _, result := range results {
		out = append(out, FromResult(result))
	}
	return out
}

// FromLogEvents converts hub events, never returning nil.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, LogEvent{
			Sequence:  evt.Sequence,
			Timestamp: formatTime(evt.Timestamp),
			Level:     evt.Level,
			Message:   evt.Message,
			Component: evt.Component,
			BatchID:   evt.BatchID,
			FileID:    evt.FileID,
			File:      evt.File,
			Fields:    evt.Fields,
		})
	}
	return out
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// FileCounts renders per-status counts with string keys.
func FileCounts(counts map[catalog.Status]int) map[string]int {
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	return out
}
