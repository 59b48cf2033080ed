package player

import (
	"fmt"

	"zestsync/internal/logging"
	"zestsync/internal/models"
	"zestsync/internal/taskqueue"
)

// message is anything delivered to the session inbox.
type message interface{}

type (
	addMedia         struct{ path string }
	removeMedia      struct{ index int }
	selectMedia      struct{ index int }
	selectLanguage   struct{ code string }
	generateRequest  struct{}
	loadSubtitleFile struct{ path string }
	cancelRequest    struct{}
	feedMessage      struct{ feed Feed }
	autoGenerate     struct{ code string }
	downloadModel    struct{ code string }

	generationSettled struct{ handle *taskqueue.Handle }
	downloadEvent     struct{ event models.Event }
	snapshotRequest   struct{ reply chan State }
)

func (s *Session) handle(msg message) {
	switch m := msg.(type) {
	case addMedia:
		s.addMedia(m.path)
	case removeMedia:
		s.removeMedia(m.index)
	case selectMedia:
		s.selectMedia(m.index)
	case selectLanguage:
		s.selectLanguage(m.code)
	case generateRequest:
		s.generate()
	case loadSubtitleFile:
		s.loadManualSubtitle(m.path)
	case cancelRequest:
		s.cancel()
	case feedMessage:
		s.applyFeed(m.feed)
	case autoGenerate:
		s.autoGenerate(m.code)
	case downloadModel:
		s.startDownload(m.code)
	case generationSettled:
		s.settleGeneration(m.handle)
	case downloadEvent:
		s.applyDownloadEvent(m.event)
	case snapshotRequest:
		m.reply <- s.snapshot()
	default:
		logging.WarnWithContext(s.logger, "unknown session message dropped", "session_message_unknown",
			logging.String("message", fmt.Sprintf("%T", msg)),
			logging.String(logging.FieldImpact, "message ignored"))
	}
}
