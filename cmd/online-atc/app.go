package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/navmap-online/pkg/log"
	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

// store lists the data written by a running online session.
type store interface {
	Atc() ([]whazzup.Client, error)
	Servers() ([]whazzup.Server, error)
}

// App browses controllers and servers of the online network.
type App struct {
	store   store
	refresh time.Duration
	lg      *log.Logger
	now     func() time.Time

	tviewApp *tview.Application
	atcTable *tview.Table
	details  *tview.TextView
	servers  *tview.Table
	status   *tview.TextView
	search   *tview.InputField
	root     *tview.Flex

	mu       sync.Mutex
	atc      []whazzup.Client
	shown    []whazzup.Client
	filter   whazzup.FacilityType
	query    string
	lastLoad time.Time
	loadErr  error
}

func NewApp(st store, refresh time.Duration, lg *log.Logger) *App {
	a := &App{
		store:   st,
		refresh: refresh,
		lg:      lg,
		now:     time.Now,
	}
	a.setupUI()
	return a
}

func (a *App) setupUI() {
	a.tviewApp = tview.NewApplication()

	a.atcTable = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.atcTable.SetBorder(true).SetTitle(" Controllers ")
	a.atcTable.SetSelectionChangedFunc(func(row, column int) {
		a.showDetails(row)
	})

	a.details = tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	a.details.SetBorder(true).SetTitle(" Details ")

	a.servers = tview.NewTable().SetFixed(1, 0)
	a.servers.SetBorder(true).SetTitle(" Servers ")

	a.status = tview.NewTextView().SetDynamicColors(true)

	a.search = tview.NewInputField().
		SetLabel("Search: ").
		SetFieldWidth(20)
	a.search.SetChangedFunc(func(text string) {
		a.mu.Lock()
		a.query = text
		a.mu.Unlock()
		a.render()
	})
	a.search.SetDoneFunc(func(key tcell.Key) {
		a.tviewApp.SetFocus(a.atcTable)
	})

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.details, 0, 2, false).
		AddItem(a.servers, 0, 1, false)

	main := tview.NewFlex().
		AddItem(a.atcTable, 0, 3, true).
		AddItem(right, 0, 2, false)

	a.root = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(main, 0, 1, true).
		AddItem(a.search, 1, 0, false).
		AddItem(a.status, 1, 0, false)

	a.tviewApp.SetRoot(a.root, true).SetFocus(a.atcTable)
	a.tviewApp.SetInputCapture(a.handleKeyboard)
}

func (a *App) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	if a.tviewApp.GetFocus() == a.search {
		return event
	}

	switch event.Key() {
	case tcell.KeyCtrlC:
		a.tviewApp.Stop()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q':
			a.tviewApp.Stop()
			return nil
		case 'r':
			go a.reloadAndDraw()
			return nil
		case 'f':
			a.mu.Lock()
			a.filter = nextFilter(a.filter)
			a.mu.Unlock()
			a.render()
			return nil
		case '/':
			a.tviewApp.SetFocus(a.search)
			return nil
		}
	}
	return event
}

// Run shows the browser until the user quits.
func (a *App) Run() error {
	a.reload()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(a.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				a.reloadAndDraw()
			}
		}
	}()

	return a.tviewApp.Run()
}

// reloadAndDraw reads the store on the calling goroutine and updates the
// panels on the UI goroutine.
func (a *App) reloadAndDraw() {
	servers := a.load()
	a.tviewApp.QueueUpdateDraw(func() {
		a.renderServers(servers)
		a.render()
	})
}

// reload reads the store and rebuilds all panels.
func (a *App) reload() {
	servers := a.load()
	a.renderServers(servers)
	a.render()
}

func (a *App) load() []whazzup.Server {
	atc, err := a.store.Atc()
	if err != nil {
		a.lg.Warn("Cannot load controllers", "error", err)
	}
	servers, serr := a.store.Servers()
	if serr != nil {
		a.lg.Warn("Cannot load servers", "error", serr)
		if err == nil {
			err = serr
		}
	}

	a.mu.Lock()
	a.atc = atc
	a.loadErr = err
	a.lastLoad = a.now()
	a.mu.Unlock()
	return servers
}

// render fills the controller table from the loaded data and the filter.
func (a *App) render() {
	a.mu.Lock()
	a.shown = filterAtc(a.atc, a.filter, a.query)
	shown := a.shown
	filter := a.filter
	total := len(a.atc)
	lastLoad := a.lastLoad
	loadErr := a.loadErr
	a.mu.Unlock()

	a.atcTable.Clear()
	for col, title := range []string{"Callsign", "Facility", "Frequency", "Radius", "Name"} {
		a.atcTable.SetCell(0, col, tview.NewTableCell(title).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}
	for i, c := range shown {
		row := i + 1
		a.atcTable.SetCell(row, 0, tview.NewTableCell(c.Callsign))
		a.atcTable.SetCell(row, 1, tview.NewTableCell(c.Facility.String()))
		a.atcTable.SetCell(row, 2, tview.NewTableCell(c.Frequency))
		a.atcTable.SetCell(row, 3, tview.NewTableCell(radiusText(c)).SetAlign(tview.AlignRight))
		a.atcTable.SetCell(row, 4, tview.NewTableCell(c.Name).SetExpansion(1))
	}

	filterName := "All"
	if filter != whazzup.FacilityUnknown {
		filterName = filter.String()
	}
	status := fmt.Sprintf(" [yellow]%d[-] of %d controllers  [white]Filter:[-] %s", len(shown), total, filterName)
	if !lastLoad.IsZero() {
		status += "  [white]Loaded:[-] " + lastLoad.Format("15:04:05")
	}
	if loadErr != nil {
		status += fmt.Sprintf("  [red]%v[-]", loadErr)
	}
	status += "  [gray]f: filter  /: search  r: reload  q: quit[-]"
	a.status.SetText(status)

	if len(shown) > 0 {
		row, _ := a.atcTable.GetSelection()
		if row < 1 || row > len(shown) {
			a.atcTable.Select(1, 0)
		}
		row, _ = a.atcTable.GetSelection()
		a.showDetails(row)
	} else {
		a.details.SetText("")
	}
}

func (a *App) renderServers(servers []whazzup.Server) {
	a.servers.Clear()
	for col, title := range []string{"Ident", "Host", "Location", "Type"} {
		a.servers.SetCell(0, col, tview.NewTableCell(title).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}
	for i, s := range servers {
		kind := "Data"
		if s.Voice {
			kind = "Voice"
		}
		a.servers.SetCell(i+1, 0, tview.NewTableCell(s.Ident))
		a.servers.SetCell(i+1, 1, tview.NewTableCell(s.Host))
		a.servers.SetCell(i+1, 2, tview.NewTableCell(s.Location).SetExpansion(1))
		a.servers.SetCell(i+1, 3, tview.NewTableCell(kind))
	}
}

func (a *App) showDetails(row int) {
	a.mu.Lock()
	var (
		c  whazzup.Client
		ok bool
	)
	if row >= 1 && row <= len(a.shown) {
		c, ok = a.shown[row-1], true
	}
	a.mu.Unlock()

	if !ok {
		return
	}
	a.details.SetText(atcDetails(c, a.now()))
}
