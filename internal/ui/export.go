package ui

import (
	"fmt"
	"io"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"CanvasBoard/internal/export"
	"CanvasBoard/internal/session"
)

// showExportDialog asks for a file and renders the canvas into it; the
// format follows the chosen extension.
func showExportDialog(sess *session.Session, win fyne.Window) {
	save := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		if w == nil {
			return
		}
		if err := exportTo(sess, w, w.URI().Path()); err != nil {
			dialog.ShowError(err, win)
		}
	}, win)
	save.SetFileName("canvas.png")
	save.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".svg", ".pdf"}))
	save.Show()
}

func exportTo(sess *session.Session, w io.WriteCloser, path string) error {
	defer w.Close()
	format, err := export.FormatForPath(path)
	if err != nil {
		return err
	}
	r, err := format.Renderer()
	if err != nil {
		return err
	}
	if err := sess.Export(w, r); err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}
	return nil
}
