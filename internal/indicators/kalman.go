package indicators

// KalmanFilter runs a two-state (level + velocity) Kalman filter over the
// close series with a constant-velocity model, process noise q and
// measurement noise r. It returns the filtered level and the velocity
// estimate per bar.
//
// The state transition is x' = F x with F = [[1, 1], [0, 1]] and the process
// noise covariance is the standard continuous white-noise acceleration form
// scaled by q.
func KalmanFilter(close []float64, q, r float64) (filtered, velocity []float64) {
	n := len(close)
	filtered = make([]float64, n)
	velocity = make([]float64, n)
	if n == 0 {
		return filtered, velocity
	}

	// state [level, velocity] and covariance
	x0, x1 := close[0], 0.0
	p00, p01, p10, p11 := 1000.0, 0.0, 0.0, 1000.0

	// Q for dt=1: [[1/3, 1/2], [1/2, 1]] * q
	q00, q01, q10, q11 := q/3, q/2, q/2, q

	for i := 0; i < n; i++ {
		// predict
		x0 += x1

		np00 := p00 + p10 + p01 + p11 + q00
		np01 := p01 + p11 + q01
		np10 := p10 + p11 + q10
		np11 := p11 + q11
		p00, p01, p10, p11 = np00, np01, np10, np11

		// update with measurement close[i], H = [1, 0]
		y := close[i] - x0
		s := p00 + r
		k0 := p00 / s
		k1 := p10 / s

		x0 += k0 * y
		x1 += k1 * y

		// P = (I - K H) P
		np00 = (1 - k0) * p00
		np01 = (1 - k0) * p01
		np10 = -k1*p00 + p10
		np11 = -k1*p01 + p11
		p00, p01, p10, p11 = np00, np01, np10, np11

		filtered[i] = x0
		velocity[i] = x1
	}

	return filtered, velocity
}
