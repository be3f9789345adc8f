package light

// Command is a single-light instruction: which endpoint to hit, which light
// it represents, and the direction. Immutable once built.
type Command struct {
	URL  string
	Flag Flag
	On   bool
}

// BuildCommands derives the three commands for a desired light set. Every
// light gets a command: lights in desired are turned on, the rest off. The
// slice is in the fixed issue order (Available, Away, Busy).
func BuildCommands(urls map[Flag]string, desired Flag) []Command {
	cmds := make([]Command, 0, len(Order()))
	for _, f := range Order() {
		cmds = append(cmds, Command{
			URL:  urls[f],
			Flag: f,
			On:   desired.Has(f),
		})
	}
	return cmds
}
