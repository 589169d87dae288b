package window

import (
	"encoding/binary"
	"fmt"
	"image"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/logger"
)

// X11Enumerator lists top-level windows through EWMH with a QueryTree fallback
type X11Enumerator struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

// NewX11Enumerator connects to the X server named by $DISPLAY
func NewX11Enumerator() (*X11Enumerator, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	return NewX11EnumeratorConn(conn), nil
}

// NewX11EnumeratorConn reuses an existing connection; Close will close it
func NewX11EnumeratorConn(conn *xgb.Conn) *X11Enumerator {
	setup := xproto.Setup(conn)
	return &X11Enumerator{
		conn:  conn,
		root:  setup.DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom),
	}
}

// Name returns the backend name
func (e *X11Enumerator) Name() string {
	return "x11"
}

// Close closes the X11 connection
func (e *X11Enumerator) Close() error {
	e.conn.Close()
	return nil
}

// Enumerate visits client windows in _NET_CLIENT_LIST order, or root children
// in stacking order when the window manager does not publish EWMH.
func (e *X11Enumerator) Enumerate(visit func(Info) bool) error {
	log := logger.WithComponent("x11-locator")

	ids, err := e.clientListEWMH()
	if err != nil || len(ids) == 0 {
		log.Debug().Err(err).Msg("EWMH client list unavailable, falling back to QueryTree")
		tree, err := xproto.QueryTree(e.conn, e.root).Reply()
		if err != nil {
			return fmt.Errorf("failed to query window tree: %w", err)
		}
		ids = tree.Children
	}

	for _, id := range ids {
		info, err := e.windowInfo(id)
		if err != nil {
			log.Debug().Uint32("window_id", uint32(id)).Err(err).Msg("Skipping window")
			continue
		}
		if !visit(info) {
			return nil
		}
	}
	return nil
}

// clientListEWMH reads the window IDs from _NET_CLIENT_LIST on the root window
func (e *X11Enumerator) clientListEWMH() ([]xproto.Window, error) {
	atom, err := e.atom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}

	reply, err := xproto.GetProperty(e.conn, false, e.root, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST property: %w", err)
	}

	ids := make([]xproto.Window, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		ids = append(ids, xproto.Window(binary.LittleEndian.Uint32(reply.Value[i:])))
	}
	return ids, nil
}

// windowInfo collects title, class, pid, map state and geometry for win
func (e *X11Enumerator) windowInfo(win xproto.Window) (Info, error) {
	info := Info{Handle: Handle(win)}

	attrs, err := xproto.GetWindowAttributes(e.conn, win).Reply()
	if err != nil {
		return info, fmt.Errorf("failed to get window attributes: %w", err)
	}
	info.Visible = attrs.MapState == xproto.MapStateViewable

	if geom, err := xproto.GetGeometry(e.conn, xproto.Drawable(win)).Reply(); err == nil {
		x, y := int(geom.X), int(geom.Y)
		// Reparenting window managers report geometry relative to the frame
		if tr, err := xproto.TranslateCoordinates(e.conn, win, e.root, 0, 0).Reply(); err == nil {
			x, y = int(tr.DstX), int(tr.DstY)
		}
		info.Bounds = image.Rect(x, y, x+int(geom.Width), y+int(geom.Height))
	}

	info.Title = e.stringProperty(win, "_NET_WM_NAME")
	if info.Title == "" {
		info.Title = e.stringProperty(win, "WM_NAME")
	}

	// WM_CLASS is instance\0class\0
	if raw := e.stringProperty(win, "WM_CLASS"); raw != "" {
		parts := strings.Split(raw, "\x00")
		if len(parts) >= 2 && parts[1] != "" {
			info.Class = parts[1]
		} else {
			info.Class = parts[0]
		}
	}

	if atom, err := e.atom("_NET_WM_PID"); err == nil {
		reply, err := xproto.GetProperty(e.conn, false, win, atom, xproto.AtomCardinal, 0, 1).Reply()
		if err == nil && len(reply.Value) >= 4 {
			info.PID = int(binary.LittleEndian.Uint32(reply.Value))
		}
	}

	return info, nil
}

// atom interns name once per enumerator
func (e *X11Enumerator) atom(name string) (xproto.Atom, error) {
	if a, ok := e.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(e.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern atom %s: %w", name, err)
	}
	e.atoms[name] = reply.Atom
	return reply.Atom, nil
}

// stringProperty returns a text property or "" when unset
func (e *X11Enumerator) stringProperty(win xproto.Window, name string) string {
	atom, err := e.atom(name)
	if err != nil {
		return ""
	}
	reply, err := xproto.GetProperty(e.conn, false, win, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil || reply.ValueLen == 0 {
		return ""
	}
	return strings.TrimRight(string(reply.Value), "\x00")
}
