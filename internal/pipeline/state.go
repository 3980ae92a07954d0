package pipeline

// State is a step of a pipeline run.
type State string

const (
	StateAwaitingTopic    State = "AwaitingTopic"
	StateGeneratingText   State = "GeneratingText"
	StateSimplifying      State = "Simplifying"
	StatePersistingText   State = "PersistingText"
	StateGeneratingImages State = "GeneratingImages"
	StatePersistingImages State = "PersistingImages"
	StateDone             State = "Done"
	StateFailed           State = "Failed"
)

// transitions lists the legal successors of each state.
var transitions = map[State][]State{
	StateAwaitingTopic:    {StateGeneratingText},
	StateGeneratingText:   {StateSimplifying, StateFailed},
	StateSimplifying:      {StatePersistingText},
	StatePersistingText:   {StateGeneratingImages, StateFailed},
	StateGeneratingImages: {StatePersistingImages},
	StatePersistingImages: {StateDone},
}

// CanTransition reports whether to may directly follow from.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
