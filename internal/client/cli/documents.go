package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/applytrack/internal/client/client"
	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dustin/go-humanize"
)

const (
	usageUpload   = "upload <path> [resume|cover-letter|other]"
	usageDownload = "download <id> [dir]"
	usageRmDoc    = "rmdoc <id>"
)

// Docs reloads the document list and prints the entries of kind ("all" by
// default) whose title contains query.
func (a *App) Docs(ctx context.Context, args []string) error {
	var kind models.DocumentType
	if len(args) > 0 {
		if args[0] == "all" {
			args = args[1:]
		} else if k, ok := models.ParseDocumentType(args[0]); ok {
			kind, args = k, args[1:]
		}
	}
	query := strings.Join(args, " ")

	if _, err := a.Documents.Reload(ctx); err != nil {
		return err
	}
	docs := a.Documents.Filter(kind, query)
	if len(docs) == 0 {
		a.println("No documents.")
		return nil
	}
	a.printDocuments(docs)
	return nil
}

func (a *App) printDocuments(docs []models.Document) {
	a.outMu.Lock()
	defer a.outMu.Unlock()

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNAME\tSIZE\tUPLOADED")
	for _, d := range docs {
		id := d.ServerID()
		if id == "" {
			id = d.Key()
		}
		uploaded := ""
		if !d.CreatedAt.IsZero() {
			uploaded = d.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", id, d.Kind(), d.Title(), humanize.IBytes(uint64(max(d.Size, 0))), uploaded)
	}
	_ = tw.Flush()
}

// Upload sends a file and waits until the document list shows it. The
// type comes from the argument, then the type of an earlier failed upload,
// then a guess from the file name.
func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errUsage(usageUpload)
	}
	path := args[0]

	if len(args) == 2 {
		t, ok := models.ParseDocumentType(args[1])
		if !ok {
			return errUsage(usageUpload)
		}
		a.pendingType = t
	}
	if a.pendingType == "" {
		a.pendingType = models.GuessDocumentType(filepath.Base(path))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	f := client.FileUpload{Name: filepath.Base(path), Content: content, DocType: a.pendingType}
	progress := func(pct int) {
		a.printf("\ruploading %s: %3d%%", f.Name, pct)
	}

	res, err := a.Documents.Upload(ctx, f, progress)
	a.println()
	if err != nil {
		return err
	}

	a.pendingType = ""
	a.printf("Uploaded %s (%s, %s).\n", f.Name, f.DocType, humanize.IBytes(uint64(len(content))))
	if !res.Settled {
		a.println("The document list has not caught up yet; run 'docs' again shortly.")
	}
	a.printf("%d documents.\n", len(res.Documents))
	return nil
}

// Download saves a document into dir, or the configured download directory.
func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errUsage(usageDownload)
	}
	dir := a.DownloadDir
	if len(args) == 2 {
		dir = args[1]
	}

	if len(a.Documents.List()) == 0 {
		if _, err := a.Documents.Reload(ctx); err != nil {
			a.log.Warn(ctx, "load documents before download", "error", err)
		}
	}

	path, err := a.Documents.Download(ctx, args[0], dir)
	if err != nil {
		return err
	}
	a.println("Saved to", path)
	return nil
}

// RemoveDocument deletes a document after confirmation.
func (a *App) RemoveDocument(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage(usageRmDoc)
	}
	answer, err := a.prompt(fmt.Sprintf("Delete document %s? (y/N)", args[0]))
	if err != nil {
		return err
	}
	if !confirmed(answer) {
		a.println("Cancelled.")
		return nil
	}

	docs, err := a.Documents.Delete(ctx, args[0])
	if err != nil {
		return err
	}
	a.printf("Deleted. %d documents left.\n", len(docs))
	return nil
}
