package soti

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_MQTTSink_Topic(t *testing.T) {
	var s = &MQTTSink{config: MQTTConfig{TopicPrefix: "soti"}}
	assert.Equal(t, "soti/frame", s.topic(RecordFrame))

	s.config.TopicPrefix = "ground/station1/"
	assert.Equal(t, "ground/station1/message", s.topic(RecordMessage))
	assert.Equal(t, "ground/station1/drop", s.topic(RecordDrop))
}

func Test_dnsSDDefaultServiceName(t *testing.T) {
	var name = dnsSDDefaultServiceName()

	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		var short, _, _ = strings.Cut(hostname, ".")
		assert.Equal(t, "SOTI on "+short, name)
	} else {
		assert.Equal(t, "SOTI ground station", name)
	}
}
