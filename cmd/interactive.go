package main

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"

	"section8map/internal/dataset"
	"section8map/internal/render"
	"section8map/internal/selection"
)

type key int

const (
	keyOther key = iota
	keyUp
	keyDown
	keyEnter
	keySpace
	keyQuit
)

// readKey decodes one keypress from a raw-mode terminal, including Windows
// console arrow sequences (0 or 224, then code) and ANSI CSI sequences.
func readKey(reader *bufio.Reader) key {
	b1, err := reader.ReadByte()
	if err != nil {
		return keyQuit
	}
	if b1 == 0 || b1 == 224 {
		b2, _ := reader.ReadByte()
		switch b2 {
		case 72:
			return keyUp
		case 80:
			return keyDown
		case 13:
			return keyEnter
		}
		return keyOther
	}

	switch b1 {
	case 27: // ESC or ANSI sequence
		if reader.Buffered() == 0 {
			return keyQuit
		}
		b2, _ := reader.ReadByte()
		if b2 != '[' || reader.Buffered() == 0 {
			return keyOther
		}
		b3, _ := reader.ReadByte()
		switch b3 {
		case 'A':
			return keyUp
		case 'B':
			return keyDown
		}
	case '\r', '\n':
		return keyEnter
	case ' ':
		return keySpace
	case 3, 'q': // Ctrl-C
		return keyQuit
	}
	return keyOther
}

// picker draws a list and lets the user move through it with arrow keys.
// With multi set, space toggles items and Enter confirms the checked set.
type picker struct {
	reader *bufio.Reader
}

func (p picker) redraw(title string, lines []string, cursor int, checked map[int]bool, multi bool) {
	// Clear screen (ANSI reset to top + clear screen)
	fmt.Print("\033[H\033[2J")
	fmt.Print(title + "\r\n\r\n")
	for i, l := range lines {
		prefix := "  "
		if i == cursor {
			prefix = "> "
		}
		if multi {
			box := "[ ] "
			if checked[i] {
				box = "[x] "
			}
			prefix += box
		}
		fmt.Print(prefix + l + "\r\n")
	}
	if multi {
		fmt.Print("\r\n(↑/↓ to navigate, Space to toggle, Enter to confirm, Esc to cancel)\r\n")
	} else {
		fmt.Print("\r\n(↑/↓ to navigate, Enter to select, Esc to cancel)\r\n")
	}
}

// one returns the index picked, or false when cancelled.
func (p picker) one(title string, lines []string, cursor int) (int, bool) {
	if len(lines) == 0 {
		return 0, false
	}
	cursor = max(0, min(cursor, len(lines)-1))
	for {
		p.redraw(title, lines, cursor, nil, false)
		switch readKey(p.reader) {
		case keyUp:
			if cursor > 0 {
				cursor--
			}
		case keyDown:
			if cursor < len(lines)-1 {
				cursor++
			}
		case keyEnter:
			return cursor, true
		case keyQuit:
			return 0, false
		}
	}
}

// many returns the checked items in list order, or false when cancelled.
func (p picker) many(title string, lines []string, selected []string) ([]string, bool) {
	checked := make(map[int]bool)
	for i, l := range lines {
		for _, s := range selected {
			if l == s {
				checked[i] = true
			}
		}
	}
	cursor := 0
	for {
		p.redraw(title, lines, cursor, checked, true)
		switch readKey(p.reader) {
		case keyUp:
			if cursor > 0 {
				cursor--
			}
		case keyDown:
			if cursor < len(lines)-1 {
				cursor++
			}
		case keySpace:
			checked[cursor] = !checked[cursor]
		case keyEnter:
			out := []string{}
			// Keep the order the user originally chose, then newly checked items.
			for _, s := range selected {
				for i, l := range lines {
					if l == s && checked[i] {
						out = append(out, l)
					}
				}
			}
			for i, l := range lines {
				if checked[i] && !contains(out, l) {
					out = append(out, l)
				}
			}
			return out, true
		case keyQuit:
			return nil, false
		}
	}
}

type menuAction struct {
	label string
	run   func(p picker, s selection.State) selection.State
}

// browse runs the terminal dashboard: a menu of widgets, each opening a picker,
// and a view action printing the current render pass.
func browse(t *dataset.Table, renderer *render.Renderer) {
	state := selection.State{}

	if runtime.GOOS == "windows" {
		enableVT()
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Println("(interactive selection not supported on this terminal)")
		printView(renderer.Render(t, state))
		return
	}
	defer func() { term.Restore(fd, oldState) }()

	p := picker{reader: bufio.NewReader(os.Stdin)}
	cursor := 0

	for {
		vm := renderer.Render(t, state)
		state = vm.Selection
		actions := menu(vm)

		labels := make([]string, len(actions))
		for i, a := range actions {
			labels[i] = a.label
		}
		idx, ok := p.one(vm.Title, labels, cursor)
		if !ok || actions[idx].run == nil {
			fmt.Print("\r\n")
			return
		}
		cursor = idx

		if actions[idx].label == viewLabel {
			term.Restore(fd, oldState)
			printView(vm)
			// Wait for user acknowledgement before returning to the menu
			fmt.Print("\n(press Enter to return)")
			_, _ = bufio.NewReader(os.Stdin).ReadBytes('\n')

			oldState, err = term.MakeRaw(fd)
			if err != nil {
				return
			}
			p.reader = bufio.NewReader(os.Stdin)
			continue
		}

		state = actions[idx].run(p, state)
	}
}

const viewLabel = "Show dashboard"

func menu(vm render.ViewModel) []menuAction {
	s := vm.Selection

	actions := []menuAction{
		{
			label: "State: " + s.Region,
			run: func(p picker, s selection.State) selection.State {
				if i, ok := p.one("Select a State", vm.Regions, indexOf(vm.Regions, s.Region)); ok {
					return s.WithRegion(vm.Regions[i])
				}
				return s
			},
		},
		{
			label: "Counties: " + strings.Join(s.Subregions, ", "),
			run: func(p picker, s selection.State) selection.State {
				if subs, ok := p.many("Select Counties", vm.Subregions, s.Subregions); ok {
					return s.WithSubregions(subs)
				}
				return s
			},
		},
		{
			label: "Home types: " + strings.Join(s.DwellingTypes, ", "),
			run: func(p picker, s selection.State) selection.State {
				if kinds, ok := p.many("Select Home Types", vm.DwellingTypes, s.DwellingTypes); ok {
					return s.WithDwellingTypes(kinds)
				}
				return s
			},
		},
	}

	for _, cv := range vm.Counties {
		actions = append(actions,
			menuAction{
				label: fmt.Sprintf("Bedrooms for %s: %s", cv.Name, cv.Choice.Bedrooms),
				run: func(p picker, s selection.State) selection.State {
					title := "Select Bedrooms for " + cv.Name
					if i, ok := p.one(title, cv.BedroomOptions, indexOf(cv.BedroomOptions, cv.Choice.Bedrooms)); ok {
						return s.WithBedrooms(cv.Name, cv.BedroomOptions[i])
					}
					return s
				},
			},
			menuAction{
				label: fmt.Sprintf("Home type for %s: %s", cv.Name, cv.Choice.DwellingType),
				run: func(p picker, s selection.State) selection.State {
					title := "Select Home Types for " + cv.Name
					if i, ok := p.one(title, cv.DwellingOptions, indexOf(cv.DwellingOptions, cv.Choice.DwellingType)); ok {
						return s.WithDwellingType(cv.Name, cv.DwellingOptions[i])
					}
					return s
				},
			},
		)
	}

	return append(actions,
		menuAction{label: viewLabel, run: func(p picker, s selection.State) selection.State { return s }},
		menuAction{label: "Quit"},
	)
}

// printView renders a view model as plain text.
func printView(vm render.ViewModel) {
	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("%s\n", vm.Title)
	fmt.Printf("State             : %s\n", vm.Selection.Region)
	if vm.Prompt != "" {
		fmt.Println(vm.Prompt)
		fmt.Println(strings.Repeat("-", 80))
		return
	}

	for _, cv := range vm.Counties {
		fmt.Println(strings.Repeat("-", 80))
		fmt.Printf("## %s\n", cv.Heading)
		fmt.Printf("Total Section 8 Properties     : %d\n", cv.Eligible)
		fmt.Printf("Total Non-Section 8 Properties : %d\n", cv.NotEligible)
		fmt.Printf("Bedrooms / Home type           : %s / %s\n", cv.Choice.Bedrooms, cv.Choice.DwellingType)

		switch cv.Outcome {
		case render.OutcomeWarned:
			fmt.Printf("%s[warning]%s %s\n", colorYellow, colorReset, cv.Warning)
			continue
		case render.OutcomeErrored:
			fmt.Printf("%s[error]%s %s\n", colorRed, colorReset, cv.Error)
			continue
		}

		center := cv.Map.Figure.Layout.Mapbox.Center
		fmt.Printf("Map               : %d points around (%.5f, %.5f), zoom %d\n",
			len(cv.Map.Figure.Data[len(cv.Map.Figure.Data)-1].Lat), center.Lat, center.Lon, cv.Map.Figure.Layout.Mapbox.Zoom)
		if cv.Map.Unmapped > 0 {
			fmt.Printf("                    %d without coordinates\n", cv.Map.Unmapped)
		}
		if cv.Map.OutsideBoundary > 0 {
			fmt.Printf("                    %d outside the county outline\n", cv.Map.OutsideBoundary)
		}

		fmt.Println()
		fmt.Println("### Section 8 Properties")
		if len(cv.Listing) == 0 {
			fmt.Println("(none)")
			continue
		}
		fmt.Printf("%-12s | %-8s | %-5s | %-8s | %-5s | %-8s | %-10s | %s\n",
			"zpid", "$/sqft", "Beds", "FMR", "Built", "Area", "Last Sold", "URL")
		for _, r := range cv.Listing {
			fmt.Printf("%-12s | %-8s | %-5s | %-8s | %-5s | %-8s | %-10s | %s\n",
				r.ID, r.PricePerSqFt, r.Bedrooms, r.FairMarketRent, r.YearBuilt, r.LivingArea, r.LastSoldPrice, r.DetailURL)
		}
	}
	fmt.Println(strings.Repeat("-", 80))
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return 0
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
