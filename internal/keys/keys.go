package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the progress view.
type KeyMap struct {
	Cancel key.Binding
	Help   key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "cancel run"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// ShortHelp returns bindings for the short help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Cancel, k.Help}
}

// FullHelp returns bindings for the expanded help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Cancel}, {k.Help}}
}
