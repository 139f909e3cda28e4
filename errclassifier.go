// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import "github.com/bassosimone/errclass"

// ErrClassifier classifies errors into categorical strings for structured
// logging.
//
// Implementations map errors to short, descriptive labels (e.g.,
// "ETIMEDOUT", "EGENERIC") that facilitate systematic analysis of protocol
// failures across handshakes and RPC calls.
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier classifies errors using [errclass.New], labeling
// timeouts, connection failures, and generic errors with short,
// log-friendly strings. A nil error classifies to the empty string.
var DefaultErrClassifier = ErrClassifierFunc(errclass.New)
