package transcription

import "strings"

// wordsPerSecond is the speech-rate guess used to convert overlap seconds
// into a window of candidate duplicated words.
const wordsPerSecond = 2.5

// advanceLocked extends the transcript while the segment at the contiguous
// pointer is terminal. Completed segments are appended with their leading
// overlap stripped; permanently failed segments become a gap marker so the
// transcript can keep growing past them. The published transcript is
// therefore always a prefix of the final one. Caller holds j.mu.
func (j *Job) advanceLocked() {
	for {
		st, ok := j.segments[j.pointer]
		if !ok {
			return
		}
		switch st.Status {
		case SegmentCompleted:
			text := strings.TrimSpace(st.Text)
			if j.pointer > 0 && j.lastText != "" {
				text = stripOverlap(j.lastText, text, st.Segment.Overlap)
			}
			if text != "" {
				j.appendLocked(text)
				j.lastText = text
			}
		case SegmentFailed:
			if j.gapMarker != "" {
				j.appendLocked(j.gapMarker)
			}
			j.lastText = ""
		default:
			return
		}
		j.pointer++
	}
}

func (j *Job) appendLocked(text string) {
	if j.transcript.Len() > 0 {
		j.transcript.WriteString(" ")
	}
	j.transcript.WriteString(text)
}

// stripOverlap removes words at the start of curr that duplicate the tail
// of prev. The overlap window is estimated from the segment overlap
// duration; a run of words matches when it is identical or agrees on at
// least 70% of words case-insensitively. When no confident match is found
// curr is returned unchanged.
func stripOverlap(prev, curr string, overlapSec float64) string {
	if prev == "" || curr == "" || overlapSec <= 0 {
		return curr
	}
	prevWords := strings.Fields(prev)
	currWords := strings.Fields(curr)
	if len(prevWords) < 5 || len(currWords) < 5 {
		return curr
	}

	estimated := int(overlapSec * wordsPerSecond)
	if estimated <= 0 {
		return curr
	}
	maxCheck := estimated + 5
	if half := len(prevWords) / 2; maxCheck > half {
		maxCheck = half
	}
	if half := len(currWords) / 2; maxCheck > half {
		maxCheck = half
	}

	best := 0
	for i := 1; i <= maxCheck; i++ {
		suffix := prevWords[len(prevWords)-i:]
		prefix := currWords[:i]
		matches := 0
		for k := range suffix {
			if strings.EqualFold(suffix[k], prefix[k]) {
				matches++
			}
		}
		if matches == i || float64(matches)/float64(i) >= 0.7 {
			best = i
		}
	}
	if best == 0 {
		return curr
	}
	return strings.TrimSpace(strings.Join(currWords[best:], " "))
}
