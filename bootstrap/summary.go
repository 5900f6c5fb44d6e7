package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/vidpipe/component"
)

// RouteInfo is one HTTP route shown in the summary.
type RouteInfo struct {
	Method string
	Path   string
}

// ConsumerInfo is one message consumer shown in the summary.
type ConsumerInfo struct {
	Name  string
	Group string
	Topic string
}

// Summary prints what a process started with.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	executors       []string
	routes          []RouteInfo
	consumers       []ConsumerInfo
	out             io.Writer
}

// NewSummary creates a summary that prints to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version, out: os.Stdout}
}

// SetStartupDuration records how long startup took.
func (s *Summary) SetStartupDuration(d time.Duration) { s.startupDuration = d }

// TrackExecutors records the node types that can be executed.
func (s *Summary) TrackExecutors(types ...string) {
	s.executors = append(s.executors, types...)
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path})
}

// TrackConsumer records a message consumer.
func (s *Summary) TrackConsumer(name, group, topic string) {
	s.consumers = append(s.consumers, ConsumerInfo{Name: name, Group: group, Topic: topic})
}

// Display prints the summary with live health from registry.
func (s *Summary) Display(ctx context.Context, registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n%s %s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if registry != nil {
		comps := registry.All()
		health := make(map[string]component.Health, len(comps))
		for _, h := range registry.HealthAll(ctx) {
			health[h.Name] = h
		}
		fmt.Fprintf(w, "\nComponents (%d)\n", len(comps))
		for i, c := range comps {
			h := health[c.Name()]
			line := fmt.Sprintf("%s %s [%s]", branch(i, len(comps)), c.Name(), strings.ToLower(string(h.Status)))
			if d, ok := c.(component.Describable); ok {
				desc := d.Describe()
				line += fmt.Sprintf(" %s: %s", desc.Type, desc.Details)
			}
			if h.Message != "" {
				line += " (" + h.Message + ")"
			}
			fmt.Fprintln(w, line)
		}
	}

	if len(s.executors) > 0 {
		fmt.Fprintf(w, "\nExecutors\n%s %s\n", branch(0, 1), strings.Join(s.executors, ", "))
	}
	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\nRoutes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "%s %-7s %s\n", branch(i, len(s.routes)), r.Method, r.Path)
		}
	}
	if len(s.consumers) > 0 {
		fmt.Fprintf(w, "\nConsumers\n")
		for i, c := range s.consumers {
			fmt.Fprintf(w, "%s %s (group: %s, topic: %s)\n", branch(i, len(s.consumers)), c.Name, c.Group, c.Topic)
		}
	}
	fmt.Fprintln(w)
}

func branch(i, n int) string {
	if i == n-1 {
		return "   └──"
	}
	return "   ├──"
}
