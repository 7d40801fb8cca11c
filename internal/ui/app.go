package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	boardnet "CanvasBoard/internal/net"
	"CanvasBoard/internal/session"
	"CanvasBoard/internal/state"
)

// Editor is the desktop window around one session. Create it before
// the session so that Hooks and OnStateChange can be passed to
// session.Open, then Attach the session and Run.
type Editor struct {
	app    fyne.App
	window fyne.Window
	board  *BoardWidget
	status *widget.Label
	panel  *PropertyPanel
	sess   *session.Session
}

func NewEditor(title string) *Editor {
	a := app.NewWithID("io.canvasboard")
	w := a.NewWindow(title)
	w.Resize(fyne.NewSize(1100, 760))
	return &Editor{
		app:    a,
		window: w,
		board:  NewBoardWidget(),
		status: widget.NewLabel("Loading canvas..."),
	}
}

// Hooks repaint the board from scene callbacks. They run with the
// session locked, so the repaint is queued on its own goroutine.
func (e *Editor) Hooks() state.Hooks {
	refresh := func() { go fyne.Do(e.board.Refresh) }
	panel := func() { go fyne.Do(e.updatePanel) }
	return state.Hooks{
		OnRender:    refresh,
		OnSelection: func(string) { panel() },
		OnHydrated:  panel,
		OnModified:  func(*state.Object) { panel() },
	}
}

// OnStateChange shows loading and failure states in the status bar.
func (e *Editor) OnStateChange(st session.State, err error) {
	fyne.Do(func() {
		switch st {
		case session.StateLoading:
			e.status.SetText("Loading canvas...")
		case session.StateFailed:
			e.status.SetText(fmt.Sprintf("Error loading canvas: %v", err))
		case session.StateReady:
			e.status.SetText("Ready")
		}
	})
}

func (e *Editor) updatePanel() {
	if e.panel != nil {
		e.panel.Update()
	}
}

// Attach lays the window out for sess. Read-only sessions get neither
// toolbar nor property panel. shareLinks are shown in the status bar
// with copy buttons.
func (e *Editor) Attach(sess *session.Session, shareLinks ...string) {
	e.sess = sess
	e.board.Attach(sess)

	bottom := container.NewHBox(e.status)
	for _, link := range shareLinks {
		bottom.Add(widget.NewButton("Copy "+linkLabel(link), func() {
			e.window.Clipboard().SetContent(link)
		}))
	}

	var top, right fyne.CanvasObject
	if !sess.ReadOnly() {
		top = NewToolbar(sess, e.window)
		e.panel = NewPropertyPanel(sess)
		right = container.NewVScroll(e.panel.Container())
	} else {
		e.status.SetText("View only")
	}

	board := container.NewScroll(e.board)
	e.window.SetContent(container.NewBorder(top, bottom, nil, right, board))

	go func() {
		for err := range sess.WriteErrors() {
			fyne.Do(func() { e.status.SetText(fmt.Sprintf("Save failed: %v", err)) })
		}
	}()
}

func linkLabel(link string) string {
	if l, err := boardnet.ParseLink(link); err == nil && l.ViewOnly {
		return "view link"
	}
	return "edit link"
}

// ShowAndRun blocks until the window is closed.
func (e *Editor) ShowAndRun() {
	e.window.ShowAndRun()
}
