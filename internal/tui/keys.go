package tui

import "github.com/charmbracelet/bubbles/key"

// Action binds a key to an inbound call on a scene object.
type Action struct {
	Binding  key.Binding
	Object   string
	Method   string
	Argument string
}

// DemoActions drives the built-in demo scene.
func DemoActions() []Action {
	move := func(dir string, keys ...string) Action {
		return Action{
			Binding:  key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], "move "+dir)),
			Object:   "Player",
			Method:   "Move",
			Argument: dir,
		}
	}
	return []Action{
		move("Up", "up", "k"),
		move("Down", "down", "j"),
		move("Left", "left", "h"),
		move("Right", "right", "l"),
		{
			Binding: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "toggle menu")),
			Object:  "Menu",
			Method:  "Toggle",
		},
		{
			Binding: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
			Object:  "Player",
			Method:  "Reset",
		},
	}
}

// keyMap holds the bindings the model handles itself, plus the actions for
// help rendering.
type keyMap struct {
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Clear      key.Binding
	Help       key.Binding
	Quit       key.Binding
	actions    []Action
}

func newKeyMap(actions []Action) keyMap {
	return keyMap{
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Clear:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		actions:    actions,
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	bindings := make([]key.Binding, 0, len(k.actions))
	for _, a := range k.actions {
		bindings = append(bindings, a.Binding)
	}
	return [][]key.Binding{
		bindings,
		{k.ScrollUp, k.ScrollDown, k.Clear},
		{k.Help, k.Quit},
	}
}
