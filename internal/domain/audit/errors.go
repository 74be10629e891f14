package audit

import "errors"

var ErrActionRequired = errors.New("audit action and resource are required")
