// Package gochannel provides the in-memory watermill pub/sub for tests and single-process runs.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const outputBuffer = 1000

// CreateChannel returns a GoChannel for status reports and triggers. Messages
// published before a subscriber exists are dropped.
func CreateChannel(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            outputBuffer,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)
}

// CreateEditsChannel returns a GoChannel that keeps every published edit and
// replays it to late subscribers. Edits are few, so the kept history stays small.
func CreateEditsChannel(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            outputBuffer,
			Persistent:                     true,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)
}
