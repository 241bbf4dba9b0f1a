package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tanq16/humble-cli/internal/utils"
	"golang.org/x/term"
)

type FunctionOutput struct {
	ID          int
	Title       string
	Status      string
	Message     string
	StreamLines []string
	Complete    bool
	StartTime   time.Time
	LastUpdated time.Time
	Error       error
	Index       int

	// speed is measured from the first reported offset so resumed files
	// do not show the bytes already on disk as transferred
	progressBase  int64
	progressStart time.Time
	progressSeen  bool
}

type ErrorReport struct {
	FunctionName string
	Error        error
	Time         time.Time
}

type Manager struct {
	outputs       map[int]*FunctionOutput
	mutex         sync.RWMutex
	out           io.Writer
	live          bool
	numLines      int
	maxStreams    int // Max output stream lines per function
	errors        []ErrorReport
	doneCh        chan struct{}
	displayTick   time.Duration
	functionCount int
	displayWg     sync.WaitGroup
	started       bool
}

// NewManager writes to stdout and redraws in place only when stdout is a
// terminal. Otherwise every state change is printed as a single line.
func NewManager() *Manager {
	return NewManagerWithWriter(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
}

func NewManagerWithWriter(w io.Writer, live bool) *Manager {
	return &Manager{
		outputs:     make(map[int]*FunctionOutput),
		errors:      []ErrorReport{},
		out:         w,
		live:        live,
		maxStreams:  10,
		doneCh:      make(chan struct{}),
		displayTick: 300 * time.Millisecond,
	}
}

func (m *Manager) RegisterFunction(title string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.functionCount++
	m.outputs[m.functionCount] = &FunctionOutput{
		ID:          m.functionCount,
		Title:       title,
		Status:      "pending",
		StreamLines: []string{},
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
		Index:       m.functionCount,
	}
	return m.functionCount
}

func (m *Manager) SetMessage(id int, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.Message = message
		info.LastUpdated = time.Now()
		m.plainLine(info.Status, message)
	}
}

func (m *Manager) SetStatus(id int, status string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.Status = status
		info.LastUpdated = time.Now()
	}
}

func (m *Manager) GetStatus(id int) string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if info, exists := m.outputs[id]; exists {
		return info.Status
	}
	return "unknown"
}

func (m *Manager) Complete(id int, message string) {
	m.finish(id, "success", message)
}

// Warn closes a function with a warning, used for skipped work.
func (m *Manager) Warn(id int, message string) {
	m.finish(id, "warning", message)
}

func (m *Manager) finish(id int, status, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.StreamLines = []string{}
		if message == "" {
			message = fmt.Sprintf("Completed %s", info.Title)
		}
		info.Message = message
		info.Complete = true
		info.Status = status
		info.LastUpdated = time.Now()
		m.plainLine(status, message)
	}
}

func (m *Manager) ReportError(id int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.Complete = true
		info.Status = "error"
		info.Error = err
		info.StreamLines = []string{}
		info.LastUpdated = time.Now()
		if info.Message == "" {
			info.Message = fmt.Sprintf("Failed %s", info.Title)
		}
		m.errors = append(m.errors, ErrorReport{
			FunctionName: info.Title,
			Error:        err,
			Time:         time.Now(),
		})
		m.plainLine("error", fmt.Sprintf("%s: %v", info.Title, err))
	}
}

func (m *Manager) AddStreamLine(id int, line string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		wrappedLines := wrapText(line, 2+4)
		info.StreamLines = append(info.StreamLines, wrappedLines...)
		if len(info.StreamLines) > m.maxStreams {
			info.StreamLines = info.StreamLines[len(info.StreamLines)-m.maxStreams:]
		}
		info.LastUpdated = time.Now()
		m.plainLine("info", line)
	}
}

func (m *Manager) AddProgressBarToStream(id int, outof, final int64, text string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		now := time.Now()
		if !info.progressSeen {
			info.progressSeen = true
			info.progressBase = outof
			info.progressStart = now
		}
		speed := utils.FormatSpeed(outof-info.progressBase, now.Sub(info.progressStart).Seconds())
		progressBar := PrintProgressBar(max(0, outof), final, 30)
		display := fmt.Sprintf("%s%s %s %s", progressBar, debugStyle.Render(text), StyleSymbols["bullet"], debugStyle.Render(speed))
		info.StreamLines = []string{display}
		info.LastUpdated = now
	}
}

// Must be called with the mutex held.
func (m *Manager) plainLine(status, message string) {
	if m.live || message == "" {
		return
	}
	fmt.Fprintf(m.out, "%s%s %s\n", strings.Repeat(" ", 2), m.GetStatusIndicator(status), message)
}

func (m *Manager) ClearAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for id := range m.outputs {
		m.outputs[id].StreamLines = []string{}
	}
}

func (m *Manager) GetStatusIndicator(status string) string {
	switch status {
	case "success", "pass":
		return successStyle.Render(StyleSymbols["pass"])
	case "error", "fail":
		return errorStyle.Render(StyleSymbols["fail"])
	case "warning":
		return warningStyle.Render(StyleSymbols["warning"])
	case "pending":
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

func styleMessage(status, message string) string {
	switch status {
	case "success":
		return successStyle.Render(message)
	case "error":
		return errorStyle.Render(message)
	case "warning":
		return warningStyle.Render(message)
	default:
		return pendingStyle.Render(message)
	}
}

func (m *Manager) sortFunctions() (active, pending, completed []*FunctionOutput) {
	var allFuncs []*FunctionOutput
	for _, info := range m.outputs {
		allFuncs = append(allFuncs, info)
	}
	sort.Slice(allFuncs, func(i, j int) bool {
		return allFuncs[i].Index < allFuncs[j].Index
	})
	for _, f := range allFuncs {
		if f.Complete {
			completed = append(completed, f)
		} else if f.Status == "pending" && f.Message == "" {
			pending = append(pending, f)
		} else {
			active = append(active, f)
		}
	}
	return active, pending, completed
}

func (m *Manager) printFunction(f *FunctionOutput, lineCount *int, availableLines int) {
	elapsed := time.Since(f.StartTime).Round(time.Second)
	if f.Complete {
		elapsed = f.LastUpdated.Sub(f.StartTime).Round(time.Second)
	}
	fmt.Fprintf(m.out, "%s%s %s %s\n", strings.Repeat(" ", 2), m.GetStatusIndicator(f.Status), debugStyle.Render(elapsed.String()), styleMessage(f.Status, f.Message))
	*lineCount++
	indent := strings.Repeat(" ", 2+4)
	for _, line := range f.StreamLines {
		if *lineCount >= availableLines {
			return
		}
		fmt.Fprintf(m.out, "%s%s\n", indent, streamStyle.Render(line))
		*lineCount++
	}
}

func (m *Manager) updateDisplay() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	availableLines := getTerminalHeight() - 3 // Leave some buffer for prompt
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}

	lineCount := 0
	activeFuncs, pendingFuncs, completedFuncs := m.sortFunctions()

	totalNeeded := len(completedFuncs)
	for _, f := range activeFuncs {
		totalNeeded += 1 + len(f.StreamLines)
	}
	totalNeeded += len(pendingFuncs)

	// trim completed functions first when the terminal is too short
	if totalNeeded > availableLines {
		maxCompleted := max(availableLines-(totalNeeded-len(completedFuncs)), 0)
		if len(completedFuncs) > maxCompleted {
			completedFuncs = completedFuncs[len(completedFuncs)-maxCompleted:]
		}
	}

	for _, f := range activeFuncs {
		if lineCount >= availableLines {
			break
		}
		m.printFunction(f, &lineCount, availableLines)
	}
	for _, f := range pendingFuncs {
		if lineCount >= availableLines {
			break
		}
		fmt.Fprintf(m.out, "%s%s %s\n", strings.Repeat(" ", 2), m.GetStatusIndicator(f.Status), pendingStyle.Render("Waiting..."))
		lineCount++
	}
	if len(completedFuncs) > 10 && lineCount < availableLines {
		fmt.Fprintln(m.out, infoStyle.Render(fmt.Sprintf("%s%d files completed with varying hidden status ...", strings.Repeat(" ", 2), len(completedFuncs)-8)))
		completedFuncs = completedFuncs[len(completedFuncs)-8:]
		lineCount++
	}
	for _, f := range completedFuncs {
		if lineCount >= availableLines {
			break
		}
		m.printFunction(f, &lineCount, availableLines)
	}
	m.numLines = lineCount
}

func (m *Manager) StartDisplay() {
	m.started = true
	if !m.live {
		return
	}
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.updateDisplay()
			case <-m.doneCh:
				m.ClearAll()
				m.updateDisplay()
				return
			}
		}
	}()
}

// StopDisplay draws the final state and prints the summary.
func (m *Manager) StopDisplay() {
	if !m.started {
		return
	}
	m.started = false
	close(m.doneCh)
	m.displayWg.Wait()
	m.ShowSummary()
}

func (m *Manager) displayErrors() {
	if len(m.errors) == 0 {
		return
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, strings.Repeat(" ", 2)+errorStyle.Bold(true).Render("Errors:"))
	for i, err := range m.errors {
		fmt.Fprintf(m.out, "%s%s %s %s\n",
			strings.Repeat(" ", 2+2),
			errorStyle.Render(fmt.Sprintf("%d.", i+1)),
			debugStyle.Render(fmt.Sprintf("[%s]", err.Time.Format("15:04:05"))),
			errorStyle.Render(fmt.Sprintf("File: %s", err.FunctionName)))
		fmt.Fprintf(m.out, "%s%s\n", strings.Repeat(" ", 2+4), errorStyle.Render(fmt.Sprintf("Error: %v", err.Error)))
	}
}

// Counts returns the number of succeeded, skipped and failed functions.
func (m *Manager) Counts() (success, skipped, failed int) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.counts()
}

func (m *Manager) counts() (success, skipped, failed int) {
	for _, info := range m.outputs {
		switch info.Status {
		case "success":
			success++
		case "warning":
			skipped++
		case "error":
			failed++
		}
	}
	return success, skipped, failed
}

func (m *Manager) ShowSummary() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if len(m.outputs) == 0 {
		return
	}
	fmt.Fprintln(m.out)
	success, skipped, failures := m.counts()
	fmt.Fprintln(m.out, strings.Repeat(" ", 2)+successStyle.Render(fmt.Sprintf("Completed %d of %d", success, len(m.outputs))))
	if skipped > 0 {
		fmt.Fprintln(m.out, strings.Repeat(" ", 2)+warningStyle.Render(fmt.Sprintf("Skipped %d of %d", skipped, len(m.outputs))))
	}
	if failures > 0 {
		fmt.Fprintln(m.out, strings.Repeat(" ", 2)+errorStyle.Render(fmt.Sprintf("Failed %d of %d", failures, len(m.outputs))))
	}
	m.displayErrors()
	fmt.Fprintln(m.out)
}
