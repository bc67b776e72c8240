package detector

import "sync"

// MockSource is a test implementation of the Source interface.
// It allows tests to control the tracked body.
type MockSource struct {
	body Body
	err  error
	mu   sync.Mutex
}

// NewMockSource creates a new MockSource that reports no user.
func NewMockSource() *MockSource {
	return &MockSource{}
}

// SetBody sets the body that will be returned by Poll.
func (m *MockSource) SetBody(body Body) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.body = body
}

// SetError sets the error that will be returned by Poll.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Poll returns the pre-configured body or error.
func (m *MockSource) Poll() (Body, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Body{}, m.err
	}
	return m.body, nil
}

// Close is a no-op for the mock source.
func (m *MockSource) Close() error {
	return nil
}

// NoBody returns a body with no tracked user.
func NoBody() Body {
	return Body{}
}

// HoldingBody returns a preset body of a user holding a prop with both hands
// at chest height, close together, in front of the body, fists closed.
func HoldingBody() Body {
	var b Body
	b.UserID = 1
	b.Joints[SpineBase] = Joint{Position: Point3D{X: 0.0, Y: 0.0, Z: 2.0}, Tracked: true}
	b.Joints[SpineMid] = Joint{Position: Point3D{X: 0.0, Y: 0.3, Z: 2.0}, Tracked: true}
	b.Joints[Head] = Joint{Position: Point3D{X: 0.0, Y: 0.7, Z: 2.0}, Tracked: true}
	b.Joints[HandLeft] = Joint{Position: Point3D{X: -0.15, Y: 0.2, Z: 1.7}, Tracked: true}
	b.Joints[HandRight] = Joint{Position: Point3D{X: 0.15, Y: 0.2, Z: 1.7}, Tracked: true}
	b.LeftHandState = HandClosed
	b.RightHandState = HandClosed
	return b
}

// ArmsDownBody returns a preset body with both hands tracked, open and
// hanging at the sides, far apart and below the hold height.
func ArmsDownBody() Body {
	b := HoldingBody()
	b.Joints[HandLeft] = Joint{Position: Point3D{X: -0.35, Y: -0.3, Z: 2.0}, Tracked: true}
	b.Joints[HandRight] = Joint{Position: Point3D{X: 0.35, Y: -0.3, Z: 2.0}, Tracked: true}
	b.LeftHandState = HandOpen
	b.RightHandState = HandOpen
	return b
}

// OneHandBody returns HoldingBody with the right hand lost.
func OneHandBody() Body {
	b := HoldingBody()
	b.Joints[HandRight].Tracked = false
	b.RightHandState = HandNotTracked
	return b
}

// NoHandsBody returns HoldingBody with both hands lost but the user still tracked.
func NoHandsBody() Body {
	b := OneHandBody()
	b.Joints[HandLeft].Tracked = false
	b.LeftHandState = HandNotTracked
	return b
}
