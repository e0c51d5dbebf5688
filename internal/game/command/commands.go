// Package command turns player input into engine actions: a registry of
// built-in commands for terse input and an intent parser for free-form
// sentences such as "walk into the old tavern".
package command

// Categories for organizing commands.
const (
	CategoryMovement      = "movement"
	CategoryWorld         = "world"
	CategoryCommunication = "communication"
	CategorySystem        = "system"
)

// Handler identifiers mapping commands to session handlers.
const (
	HandlerMove     = "move"
	HandlerLook     = "look"
	HandlerDescribe = "describe"
	HandlerExits    = "exits"
	HandlerSay      = "say"
	HandlerWho      = "who"
	HandlerQuit     = "quit"
	HandlerHelp     = "help"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage shows the argument form, e.g. "go <place>". Empty when the command takes none.
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command (movement, world, communication, system).
	Category string
	// Handler names the session handler that executes the command.
	Handler string
}

// BuiltinCommands returns all built-in commands for the game.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "go", Aliases: []string{"move", "walk", "enter", "head"}, Usage: "go <place>", Help: "Travel to a neighboring place", Category: CategoryMovement, Handler: HandlerMove},

		{Name: "look", Aliases: []string{"l", "examine", "ex"}, Help: "Look around for nearby places", Category: CategoryWorld, Handler: HandlerLook},
		{Name: "describe", Aliases: []string{"here"}, Help: "Describe where you are", Category: CategoryWorld, Handler: HandlerDescribe},
		{Name: "exits", Aliases: nil, Help: "List the places you can travel to", Category: CategoryWorld, Handler: HandlerExits},

		{Name: "say", Aliases: []string{"speak", "talk"}, Usage: "say <message>", Help: "Say something to everyone here", Category: CategoryCommunication, Handler: HandlerSay},

		{Name: "who", Aliases: nil, Help: "List the other travellers here", Category: CategorySystem, Handler: HandlerWho},
		{Name: "quit", Aliases: []string{"exit", "q"}, Help: "Leave the game", Category: CategorySystem, Handler: HandlerQuit},
		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
	}
}
