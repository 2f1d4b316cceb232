// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2026 The spkrepo authors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package spk

import "fmt"

// ParseError is returned for any malformed SPK. The message is
// user-visible and ends up in the HTTP 422 response body.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

func parseErrorf(format string, v ...interface{}) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, v...)}
}

// SignError is returned when generating or timestamping a detached
// signature fails.
type SignError struct {
	Message string
}

func (e *SignError) Error() string {
	return e.Message
}
