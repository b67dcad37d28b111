package engine

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cpcf/treegen/logging"
	"github.com/cpcf/treegen/render"
	"github.com/cpcf/treegen/write"
)

// Output is one file written by a run.
type Output struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}

// RunReport describes what a run did. Written is sorted by key.
type RunReport struct {
	Written     []Output       `json:"written"`
	Skipped     []string       `json:"skipped,omitempty"`
	Directories []string       `json:"directories,omitempty"`
	Changes     []write.Change `json:"changes,omitempty"`
}

// job is the work for one selected template.
type job struct {
	key  string
	path string
	fn   render.Func
}

// Run renders every selected template with params.Data and writes the
// results under the output root, mirroring the template tree. All output
// directories are created before any file is written. Templates are then
// processed concurrently.
//
// With the default FailFast mode the first failure is returned and
// templates not yet started are skipped. Files already written stay on
// disk; rerunning is safe since every write overwrites.
func (e *Engine) Run(ctx context.Context, params RunParams) error {
	_, err := e.RunWithReport(ctx, params)
	return err
}

// RunWithReport is Run, also reporting the files written. The report is
// returned even when the run fails.
func (e *Engine) RunWithReport(ctx context.Context, params RunParams) (*RunReport, error) {
	logger := e.logger
	if params.Quiet {
		logger = logging.Discard()
	}

	root := params.OutputRoot
	if root == "" {
		root = e.outputRoot
	}

	report := &RunReport{}
	var jobs []job
	var selected []string
	for _, key := range e.catalog.Keys() {
		if !params.includes(key) {
			report.Skipped = append(report.Skipped, key)
			continue
		}

		fn, _ := e.catalog.Lookup(key)
		dir, base := splitKey(key)
		jobs = append(jobs, job{
			key:  key,
			path: filepath.Join(root, filepath.FromSlash(dir), params.fileName(base, key)),
			fn:   fn,
		})
		selected = append(selected, key)
	}

	logger.Debug("starting run", "output", root, "templates", len(jobs), "skipped", len(report.Skipped))

	writer := e.writer
	var dryRun *write.DryRunWriter
	if params.DryRun {
		dryRun = write.NewDryRunWriter()
		writer = dryRun
	} else {
		dirs := planDirectories(root, selected)
		if err := e.createDirectories(ctx, logger, dirs); err != nil {
			return report, err
		}
		report.Directories = dirs
	}

	var mu sync.Mutex
	err := e.processAll(ctx, logger, jobs, func(j job) {
		mu.Lock()
		report.Written = append(report.Written, Output{Key: j.key, Path: j.path})
		mu.Unlock()
	}, func(j job) error {
		return e.processTemplate(logger, writer, j, params.Data)
	})

	sort.Slice(report.Written, func(i, k int) bool {
		return report.Written[i].Key < report.Written[k].Key
	})
	if dryRun != nil {
		report.Changes = dryRun.GetChanges()
	}

	if err != nil {
		return report, err
	}

	logger.Info("run complete", "output", root, "written", len(report.Written))
	return report, nil
}

func (e *Engine) processTemplate(logger *slog.Logger, writer write.Writer, j job, data any) error {
	content, err := j.fn(data)
	if err != nil {
		logger.Error("error when processing template", "key", j.key, "error", err)
		return newError(KindRender, j.key, j.path, err)
	}

	logger.Info("saving", "key", j.key, "path", j.path)
	if err := writer.Write(j.path, []byte(content), e.writeOptions); err != nil {
		logger.Error("error when saving template output", "key", j.key, "path", j.path, "error", err)
		return newError(classify(err), j.key, j.path, err)
	}

	return nil
}
