package demux

import "testing"

func TestFeedSimpleThinkThenAnswer(t *testing.T) {
	var d Demuxer
	think, answer := d.Feed("<think>reasoning here</think>final answer")
	ft, fa := d.Flush()
	think += ft
	answer += fa
	if think != "reasoning here" {
		t.Errorf("think = %q, want %q", think, "reasoning here")
	}
	if answer != "final answer" {
		t.Errorf("answer = %q, want %q", answer, "final answer")
	}
}

func TestFeedNoTagsStaysInAnswerMode(t *testing.T) {
	var d Demuxer
	think, answer := d.Feed("just plain text")
	ft, fa := d.Flush()
	think += ft
	answer += fa
	if think != "" {
		t.Errorf("think = %q, want empty", think)
	}
	if answer != "just plain text" {
		t.Errorf("answer = %q, want %q", answer, "just plain text")
	}
}

func TestFeedDelimiterStraddlesChunkBoundary(t *testing.T) {
	var d Demuxer
	var think, answer string

	parts := []string{"before <thi", "nk>hidden</th", "ink>after"}
	for _, p := range parts {
		th, an := d.Feed(p)
		think += th
		answer += an
	}
	th, an := d.Flush()
	think += th
	answer += an

	if think != "hidden" {
		t.Errorf("think = %q, want %q", think, "hidden")
	}
	if answer != "before after" {
		t.Errorf("answer = %q, want %q", answer, "before after")
	}
}

func TestFlushEmitsTrailingBuffer(t *testing.T) {
	var d Demuxer
	_, answer := d.Feed("partial answer tex")
	// With no delimiter in sight, Feed holds back the last len("<think>")-1
	// = 6 bytes whatever they contain; Flush releases them.
	if answer != "partial answ" {
		t.Errorf("answer before flush = %q, want %q", answer, "partial answ")
	}
	think, flushedAnswer := d.Flush()
	if think != "" {
		t.Errorf("think on flush = %q, want empty", think)
	}
	full := answer + flushedAnswer
	if full != "partial answer tex" {
		t.Errorf("full = %q, want %q", full, "partial answer tex")
	}
}

func TestFlushInThinkModeAttributesToThink(t *testing.T) {
	var d Demuxer
	d.Feed("<think>unterminated thought")
	think, answer := d.Flush()
	if answer != "" {
		t.Errorf("answer on flush = %q, want empty", answer)
	}
	if think == "" {
		t.Error("expected flushed think content")
	}
}

func TestFeedMultipleThinkSpans(t *testing.T) {
	var d Demuxer
	think, answer := d.Feed("<think>a</think>x<think>b</think>y")
	ft, fa := d.Flush()
	think += ft
	answer += fa
	if think != "ab" {
		t.Errorf("think = %q, want %q", think, "ab")
	}
	if answer != "xy" {
		t.Errorf("answer = %q, want %q", answer, "xy")
	}
}
