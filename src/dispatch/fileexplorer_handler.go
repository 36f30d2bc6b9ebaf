package dispatch

import (
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/sirupsen/logrus"
)

// FileExplorerHandler keeps the flat file list of the workspace.
type FileExplorerHandler struct {
	session *session.Session
	logger  *logrus.Entry
}

// NewFileExplorerHandler returns a FileExplorerHandler.
func NewFileExplorerHandler(sess *session.Session, logger *logrus.Entry) *FileExplorerHandler {
	return &FileExplorerHandler{
		session: sess,
		logger:  logger,
	}
}

// Handle implements Handler.
func (h *FileExplorerHandler) Handle(env *protocol.Envelope) {
	if env.Command != protocol.UpdateNodes {
		unknownCommand(h.logger, env)
		return
	}

	nodes, _ := env.Value("nodes")
	list, ok := nodes.([]interface{})
	if !ok && nodes != nil {
		h.logger.WithField("nodes", nodes).Warn("updatenodes: nodes is not a list")
		return
	}

	h.session.FileNodes = list

	h.session.Notify(events.Notification{
		Kind: events.FileTree,
		Data: list,
	})
}
