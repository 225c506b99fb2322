package trigger

import (
	"strings"

	"github.com/Sternrassler/netsendo-nodes/pkg/client"
	"github.com/Sternrassler/netsendo-nodes/pkg/plugin"
)

// EventOption is one selectable event.
type EventOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Description is the declarative trigger metadata handed to the host.
type Description struct {
	DisplayName   string        `json:"displayName"`
	Name          string        `json:"name"`
	Group         []string      `json:"group"`
	Version       int           `json:"version"`
	Description   string        `json:"description"`
	Credentials   []string      `json:"credentials"`
	WebhookMethod string        `json:"webhookMethod"`
	WebhookPath   string        `json:"webhookPath"`
	Events        []EventOption `json:"events"`
	DefaultEvents []string      `json:"defaultEvents"`
}

// Describe returns the trigger description.
func Describe() Description {
	d := Description{
		DisplayName:   "NetSendo Trigger",
		Name:          TypeName,
		Group:         []string{"trigger"},
		Version:       1,
		Description:   "Starts the workflow when NetSendo events occur",
		Credentials:   []string{client.CredentialTypeName},
		WebhookMethod: "POST",
		WebhookPath:   "webhook",
		DefaultEvents: DefaultParams().Events,
	}
	for _, ev := range Events() {
		d.Events = append(d.Events, EventOption{Name: eventLabel(ev), Value: ev})
	}
	return d
}

// eventLabel turns "subscriber.tag_added" into "Tag Added" and
// "subscriber.created" into "Subscriber Created".
func eventLabel(event string) string {
	name := strings.TrimPrefix(event, "subscriber.")
	words := strings.Split(name, "_")
	if len(words) == 1 {
		words = []string{"subscriber", name}
	}
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func init() {
	plugin.Register(plugin.Descriptor{
		Type:     TypeName,
		Kind:     plugin.KindTrigger,
		Describe: func() any { return Describe() },
	})
}
