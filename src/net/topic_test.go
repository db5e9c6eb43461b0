package net

import "testing"

func TestTopicWireNames(t *testing.T) {
	for _, topic := range Topics() {
		got, ok := TopicFromWireName(topic.WireName())
		if !ok {
			t.Fatalf("wire name %q not recognized", topic.WireName())
		}
		if got != topic {
			t.Fatalf("wire name %q mapped to %v, expected %v", topic.WireName(), got, topic)
		}
	}

	if _, ok := TopicFromWireName("icn/other/v1"); ok {
		t.Fatal("unknown wire name should not map to a topic")
	}
	if _, ok := TopicFromWireName(""); ok {
		t.Fatal("empty wire name should not map to a topic")
	}
}
