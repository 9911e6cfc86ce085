package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"hcanvas/bridge"
	"hcanvas/engine"
	"hcanvas/events"
	"hcanvas/geometry"
	"hcanvas/render"
)

const (
	panStep    = 4 // cells per arrow key
	zoomFactor = 1.25
)

func viewCmd() *cobra.Command {
	var (
		in       = input{collapse: -1}
		redisURL string
	)
	cmd := &cobra.Command{
		Use:   "view [input]",
		Short: "Explore a graph interactively in the terminal",
		Long: "Keys: arrows pan, +/- zoom, f fit, enter toggles the selected container,\n" +
			"0-9 collapse to a level, u/r undo and redo, tab cycles layout engines, q quits.\n" +
			"Click selects, dragging moves a node, the wheel zooms.\n\n" +
			"With --redis, camera, collapse and move changes are shared with every\n" +
			"viewer on the same stream.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				in.path = args[0]
			}
			if !stdoutIsTerminal() {
				return fmt.Errorf("view needs a terminal; use render instead")
			}
			e, err := load(in, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer e.Destroy()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var remote <-chan events.Event
			if redisURL == "" {
				redisURL = cfg.Redis.URL
			}
			if redisURL != "" {
				r, err := bridge.NewRedis(bridge.Options{
					URL:         redisURL,
					EventStream: cfg.Redis.Stream,
					MaxLen:      cfg.Redis.MaxLen,
					Logger:      logger,
				})
				if err != nil {
					return err
				}
				defer r.Close()
				defer r.Attach(e)()
				if remote, err = r.Subscribe(ctx); err != nil {
					return err
				}
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return err
			}
			if err := screen.Init(); err != nil {
				return err
			}
			defer screen.Fini()
			screen.EnableMouse()

			return newViewer(screen, e, render.DetectCapabilities()).run(ctx, remote)
		},
	}
	cmd.Flags().StringVar(&in.format, "input-format", "", "input format (detected if empty)")
	cmd.Flags().IntVar(&in.collapse, "collapse-level", -1, "collapse every container at this depth or deeper")
	cmd.Flags().StringVar(&redisURL, "redis", "", "share the canvas through this Redis server")
	return cmd
}

// viewer drives an engine from terminal input. It owns the engine: every
// engine call happens on the goroutine running run.
type viewer struct {
	screen tcell.Screen
	eng    *engine.Engine
	caps   render.TerminalCapabilities
	opts   render.Options

	dragging bool
	status   string
	quit     bool
}

func newViewer(screen tcell.Screen, e *engine.Engine, caps render.TerminalCapabilities) *viewer {
	opts := render.DefaultOptions()
	opts.Frames = e.Frames()
	v := &viewer{screen: screen, eng: e, caps: caps, opts: opts}
	v.resize()
	e.FitToContent()
	return v
}

func (v *viewer) run(ctx context.Context, remote <-chan events.Event) error {
	input := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go v.screen.ChannelEvents(input, quit)
	defer close(quit)

	v.draw()
	for !v.quit {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-input:
			if !ok {
				return nil
			}
			v.handle(ev)
		case ev, ok := <-remote:
			if !ok {
				remote = nil
				v.status = "collaboration stream closed"
				break
			}
			if err := v.eng.ApplyRemote(ev); err != nil {
				logger.Warn("remote event rejected", "kind", ev.Kind, "err", err)
			}
		}
		v.draw()
	}
	return nil
}

// canvasRows is the screen height minus the status line.
func (v *viewer) canvasRows() int {
	_, rows := v.screen.Size()
	return max(rows-1, 1)
}

func (v *viewer) resize() {
	cols, _ := v.screen.Size()
	v.eng.SetViewport(geometry.Size{
		Width:  float64(cols) * render.CellWidth,
		Height: float64(v.canvasRows()) * render.CellHeight,
	})
}

// point converts a cell to the screen point at its centre.
func point(x, y int) geometry.Point {
	return geometry.Pt((float64(x)+0.5)*render.CellWidth, (float64(y)+0.5)*render.CellHeight)
}

func (v *viewer) center() geometry.Point {
	cols, _ := v.screen.Size()
	return point(cols/2, v.canvasRows()/2)
}

func (v *viewer) handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
		v.resize()
	case *tcell.EventKey:
		v.key(ev)
	case *tcell.EventMouse:
		v.mouse(ev)
	}
}

func (v *viewer) key(ev *tcell.EventKey) {
	e := v.eng
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		if v.dragging {
			e.CancelGesture()
			v.dragging = false
			return
		}
		v.quit = true
		return
	case tcell.KeyUp:
		e.Pan(geometry.Pt(0, panStep*render.CellHeight))
	case tcell.KeyDown:
		e.Pan(geometry.Pt(0, -panStep*render.CellHeight))
	case tcell.KeyLeft:
		e.Pan(geometry.Pt(panStep*render.CellWidth, 0))
	case tcell.KeyRight:
		e.Pan(geometry.Pt(-panStep*render.CellWidth, 0))
	case tcell.KeyEnter:
		v.toggleSelected()
	case tcell.KeyTab:
		v.nextEngine()
	case tcell.KeyRune:
		switch r := ev.Rune(); {
		case r == 'q':
			v.quit = true
		case r == '+' || r == '=':
			e.Zoom(zoomFactor, v.center())
		case r == '-':
			e.Zoom(1/zoomFactor, v.center())
		case r == 'f':
			e.FitToContent()
		case r == ' ':
			v.toggleSelected()
		case r == 'u':
			if _, ok := e.Undo(); !ok {
				v.status = "nothing to undo"
			}
		case r == 'r':
			if _, ok := e.Redo(); !ok {
				v.status = "nothing to redo"
			}
		case r >= '0' && r <= '9':
			e.CollapseToLevel(int(r - '0'))
			v.status = fmt.Sprintf("collapsed to level %c", r)
		}
	}
}

func (v *viewer) toggleSelected() {
	sel := v.eng.Selection()
	if len(sel) == 0 {
		v.status = "select a container first"
		return
	}
	if _, ok := v.eng.ToggleCollapsed(sel[len(sel)-1]); !ok {
		v.status = "not a container"
	}
}

func (v *viewer) nextEngine() {
	names := v.eng.Engines()
	if len(names) == 0 {
		return
	}
	i := slices.Index(names, v.eng.ActiveEngine())
	next := names[(i+1)%len(names)]
	if _, err := v.eng.SwitchLayoutEngine(next); err != nil {
		v.status = err.Error()
		return
	}
	v.eng.FitToContent()
	v.status = "layout: " + next
}

func (v *viewer) mouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	at := point(x, y)
	e := v.eng
	switch btn := ev.Buttons(); {
	case btn&tcell.WheelUp != 0:
		e.Zoom(zoomFactor, at)
	case btn&tcell.WheelDown != 0:
		e.Zoom(1/zoomFactor, at)
	case btn&tcell.Button1 != 0:
		if v.dragging {
			e.UpdateDrag(at)
			return
		}
		additive := ev.Modifiers()&tcell.ModShift != 0
		if _, ok := e.SelectAt(at, additive); !ok && !additive {
			e.ClearSelection()
		}
		if n := e.HitTestScreen(at); n != nil {
			if err := e.StartDrag(n.GUID, at); err == nil {
				v.dragging = true
			}
		}
	case btn == tcell.ButtonNone && v.dragging:
		v.dragging = false
		e.StopDrag()
	}
}

func (v *viewer) draw() {
	cols, rows := v.screen.Size()
	surface := render.NewTextSurface(cols, v.canvasRows(), v.caps)
	view := v.eng.View()
	stats := render.Paint(surface, view, v.opts)

	v.screen.Clear()
	surface.Flush(v.screen)

	cam := view.Camera
	line := fmt.Sprintf(" %s  zoom %.2f  nodes %d  edges %d  culled %d",
		v.eng.ActiveEngine(), cam.Zoom, stats.Nodes, stats.Edges, stats.Culled)
	if v.status != "" {
		line += "  " + v.status
		v.status = ""
	}
	style := tcell.StyleDefault.Reverse(true)
	for x := range cols {
		r := ' '
		if x < len(line) {
			r = rune(line[x])
		}
		v.screen.SetContent(x, rows-1, r, nil, style)
	}
	v.screen.Show()
}
