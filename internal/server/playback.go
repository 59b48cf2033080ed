package server

// EventPlayback is the playback adapter used in serve mode. The playback
// engine runs in the client, so loading a subtitle means telling the client
// which file to load.
type EventPlayback struct {
	bus *EventBus
}

// NewEventPlayback publishes subtitle loads on bus.
func NewEventPlayback(bus *EventBus) *EventPlayback {
	return &EventPlayback{bus: bus}
}

// AddSubtitle implements player.Playback.
func (p *EventPlayback) AddSubtitle(path string) error {
	p.bus.Publish("subtitle.load", map[string]string{"path": path})
	return nil
}
