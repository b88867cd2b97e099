package lens

import "lensd/pkg/types"

// Task is one conversation to analyse, remembered with its position in the
// request.
type Task struct {
	Index          int
	ConversationID string
	Prompt         string
	Positions      []int
}

// Group is the set of tasks that target one model.
type Group struct {
	Model string
	Tasks []Task
}

// GroupByModel partitions conversations by model name. Groups appear in the
// order their model was first seen; tasks keep their relative order.
func GroupByModel(convs []types.Conversation) []Group {
	var groups []Group
	at := make(map[string]int)
	for i, c := range convs {
		gi, ok := at[c.Model]
		if !ok {
			gi = len(groups)
			at[c.Model] = gi
			groups = append(groups, Group{Model: c.Model})
		}
		groups[gi].Tasks = append(groups[gi].Tasks, Task{
			Index:          i,
			ConversationID: c.ID,
			Prompt:         c.Prompt,
			Positions:      c.SelectedTokenIndices,
		})
	}
	return groups
}
