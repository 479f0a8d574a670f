package rest

import (
	"github.com/mediahub-app/mediahub/server/internal/capability"
	"github.com/mediahub-app/mediahub/server/internal/kv"
	"github.com/mediahub-app/mediahub/server/internal/metadata"
	"github.com/mediahub-app/mediahub/server/internal/stream"
)

type ContainerArgs struct {
	Locator metadata.Locator
	Policy  capability.Policy
	Fetcher *metadata.Fetcher
	Streams *stream.Orchestrator
	Running *kv.Store
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type statusResponse struct {
	Version        string `json:"version"`
	ToolVersion    string `json:"toolVersion"`
	ToolPath       string `json:"toolPath"`
	PostProcessing bool   `json:"postProcessing"`
	ActiveStreams  int    `json:"activeStreams"`
}
