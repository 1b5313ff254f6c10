package jmte

// Action tells a ProcessListener what the evaluator is doing with a token.
type Action int

const (
	// ActionEval is sent before a literal or expression token is evaluated.
	ActionEval Action = iota
	// ActionEnter is sent before the body of an if or foreach is evaluated.
	ActionEnter
	// ActionExit is sent after the body of an if or foreach was evaluated.
	ActionExit
	// ActionIterateForEach is sent once per element, before the body runs.
	ActionIterateForEach
)

func (a Action) String() string {
	switch a {
	case ActionEval:
		return "EVAL"
	case ActionEnter:
		return "ENTER"
	case ActionExit:
		return "EXIT"
	case ActionIterateForEach:
		return "ITERATE_FOREACH"
	default:
		return "UNKNOWN"
	}
}

// ProcessListener observes template evaluation.
type ProcessListener interface {
	Log(token Token, action Action)
}

// ProcessListenerFunc adapts a function to the ProcessListener interface.
type ProcessListenerFunc func(token Token, action Action)

func (f ProcessListenerFunc) Log(token Token, action Action) {
	f(token, action)
}
