package engine

// Clip is a pre-authored animation owned by a node. Storyboard playback
// positions its playhead through GoToFrame.
type Clip struct {
	name  string
	owner string
	from  float32
	to    float32

	frame     float32
	playing   bool
	loop      bool
	evaluated bool
}

// NewClip creates a stopped clip spanning [from, to] owned by the named node.
func NewClip(name, owner string, from, to float32) *Clip {
	if to < from {
		from, to = to, from
	}
	return &Clip{name: name, owner: owner, from: from, to: to, frame: from}
}

func (c *Clip) Name() string          { return c.name }
func (c *Clip) Owner() string         { return c.owner }
func (c *Clip) CurrentFrame() float32 { return c.frame }
func (c *Clip) Playing() bool         { return c.playing }
func (c *Clip) Looping() bool         { return c.loop }

// Range returns the authored frame span regardless of evaluation.
func (c *Clip) Range() (from, to float32) { return c.from, c.to }

// GoToFrame jumps the playhead to frame.
func (c *Clip) GoToFrame(frame float32) {
	c.frame = frame
	c.evaluated = true
}

// Play starts advancing the playhead.
func (c *Clip) Play(loop bool) {
	c.playing = true
	c.loop = loop
	c.evaluated = true
}

// Pause stops advancing and keeps the playhead.
func (c *Clip) Pause() { c.playing = false }

// Stop halts the clip and rewinds to its first frame.
func (c *Clip) Stop() {
	c.playing = false
	c.frame = c.from
}

// FirstFrame is 0 until the clip has been played or seeked once.
func (c *Clip) FirstFrame() float32 {
	if !c.evaluated {
		return 0
	}
	return c.from
}

// LastFrame is 0 until the clip has been played or seeked once.
func (c *Clip) LastFrame() float32 {
	if !c.evaluated {
		return 0
	}
	return c.to
}
