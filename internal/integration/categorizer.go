package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskpilot/taskpilot/internal/core"
	"github.com/taskpilot/taskpilot/pkg/models"
)

const categorizerSystemPrompt = "You are a task filing assistant. Choose the best section for the task from the listed sections. Respond with JSON only: {\"section\": \"exact section name\" or \"\", \"reason\": \"short explanation\"}."

// sectionCategorizer implements core.Categorizer by asking the chat
// model which project section a new task belongs in.
type sectionCategorizer struct {
	chat  ChatClient
	tasks TodoistClient
}

// NewSectionCategorizer wires a core.Categorizer over the chat model and
// the task service.
func NewSectionCategorizer(chat ChatClient, tasks TodoistClient) core.Categorizer {
	return &sectionCategorizer{chat: chat, tasks: tasks}
}

type categorizerChoice struct {
	Section string `json:"section"`
	Reason  string `json:"reason"`
}

// Categorize files the task into a section of its project. It returns
// false without error when the project has no sections, when the model
// declines, or when the task already sits in the chosen section.
func (sc *sectionCategorizer) Categorize(ctx context.Context, task models.Task) (bool, string, error) {
	sections, err := sc.tasks.ListSections(ctx, task.ProjectID)
	if err != nil {
		return false, "", fmt.Errorf("listing sections: %w", err)
	}
	if len(sections) == 0 {
		return false, "", nil
	}

	names := make([]string, len(sections))
	byName := make(map[string]Section, len(sections))
	for i, s := range sections {
		names[i] = s.Name
		byName[strings.ToLower(s.Name)] = s
	}

	user := fmt.Sprintf("Task: %s\nDescription: %s\n\nSections: %s",
		task.Title(), task.Description, strings.Join(names, ", "))

	reply, err := sc.chat.Complete(ctx, categorizerSystemPrompt, user)
	if err != nil {
		return false, "", fmt.Errorf("asking categorizer model: %w", err)
	}

	var choice categorizerChoice
	if err := json.Unmarshal([]byte(stripFences(reply)), &choice); err != nil {
		return false, "", fmt.Errorf("decoding categorizer reply %q: %w", reply, err)
	}
	if choice.Section == "" {
		return false, "", nil
	}

	section, ok := byName[strings.ToLower(choice.Section)]
	if !ok {
		return false, "", fmt.Errorf("model chose unknown section %q", choice.Section)
	}
	if section.ID == task.SectionID {
		return false, "", nil
	}

	if err := sc.tasks.MoveToSection(ctx, task.ID, section.ID); err != nil {
		return false, "", fmt.Errorf("moving task to section %q: %w", section.Name, err)
	}
	return true, section.Name, nil
}
