package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/uploadvault/internal/client/registry"
	"github.com/dmitrijs2005/uploadvault/internal/client/uploader"
)

// Upload validates and uploads the given paths concurrently, then renders
// the final notification state. Files that fail to stat still get a line in
// the output but never block the rest of the selection.
func (a *App) Upload(ctx context.Context, paths []string, w io.Writer) {
	if len(paths) == 0 {
		fmt.Fprintln(w, "usage: upload <path> [path...]")
		return
	}

	files := make([]uploader.File, 0, len(paths))
	for _, p := range paths {
		f, err := uploader.FileFromPath(p)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", p, err)
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return
	}

	fmt.Fprintf(w, "Uploading %d file(s)...\n", len(files))
	a.orchestrator.UploadAll(ctx, files)

	a.RenderNotifications(w, true)
}

// RenderNotifications prints the presenter's current roll-up: the headline
// counters and, when expanded, one line per record.
func (a *App) RenderNotifications(w io.Writer, expanded bool) {
	if !a.presenter.Visible() {
		fmt.Fprintln(w, "No notifications")
		return
	}

	s := a.presenter.Summary()
	if s.Active > 0 {
		fmt.Fprintf(w, "Uploading %d file(s), %d%% complete\n", s.Active, s.OverallProgress)
	} else {
		fmt.Fprintf(w, "%d file(s): %d successful, %d failed\n", s.Total, s.Succeeded, s.Failed)
	}

	if !expanded {
		return
	}

	for _, rec := range s.Records {
		sizeMB := float64(rec.FileSize) / 1024 / 1024
		switch rec.Status {
		case registry.StatusSuccess:
			fmt.Fprintf(w, "  [done]  %s (%.2f MB) -> %s\n", rec.FileName, sizeMB, rec.URL)
		case registry.StatusError:
			fmt.Fprintf(w, "  [error] %s (%.2f MB): %s\n", rec.FileName, sizeMB, rec.Error)
		case registry.StatusUploading:
			fmt.Fprintf(w, "  [%3d%%]  %s (%.2f MB)  id=%s\n", rec.Progress, rec.FileName, sizeMB, rec.ID)
		default:
			fmt.Fprintf(w, "  [queued] %s (%.2f MB)\n", rec.FileName, sizeMB)
		}
	}

	if a.presenter.CanClearCompleted() {
		fmt.Fprintln(w, "  (type 'clear' to remove completed uploads)")
	}
}

// List prints the assets stored under the deployment namespace.
func (a *App) List(ctx context.Context, w io.Writer) error {
	resources, err := a.client.ListUploads(ctx)
	if err != nil {
		return err
	}

	if len(resources) == 0 {
		fmt.Fprintln(w, "No uploaded files")
		return nil
	}

	for _, r := range resources {
		fmt.Fprintf(w, "%-8s %10d  %s\n", r.ResourceKind, r.Bytes, r.SecureURL)
	}
	return nil
}
