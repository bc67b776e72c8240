package hold

// Debounce is the hysteresis state: two mutually resetting streak counters
// and the reported holding flag.
type Debounce struct {
	Holding            bool `json:"holding"`
	DetectionFrames    int  `json:"detection_frames"`
	NonDetectionFrames int  `json:"non_detection_frames"`
}

// Advance feeds one raw result into the debouncer. Holding turns on after
// acquireFrames consecutive detections and off after ReleaseFrames
// consecutive misses.
func (d Debounce) Advance(raw bool, acquireFrames int) Debounce {
	if raw {
		d.DetectionFrames++
		d.NonDetectionFrames = 0
		if d.DetectionFrames >= acquireFrames {
			d.Holding = true
		}
		return d
	}

	d.NonDetectionFrames++
	d.DetectionFrames = 0
	if d.NonDetectionFrames >= ReleaseFrames {
		d.Holding = false
	}
	return d
}
