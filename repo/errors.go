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

package repo

import (
	"fmt"
	"net/http"
	"strings"
)

// UploadError is a rejected upload or build action with a definite
// HTTP status.
type UploadError struct {
	Status  int
	Message string
}

func (e *UploadError) Error() string {
	return e.Message
}

func unprocessable(format string, v ...interface{}) *UploadError {
	return &UploadError{Status: http.StatusUnprocessableEntity, Message: fmt.Sprintf(format, v...)}
}

func forbidden(message string) *UploadError {
	return &UploadError{Status: http.StatusForbidden, Message: message}
}

var (
	errSignedUpload    = unprocessable("Package contains a signature")
	errInvalidFirmware = unprocessable("Invalid firmware")
	errUnknownFirmware = unprocessable("Unknown firmware")
	errInvalidVersion  = unprocessable("Invalid version")
)

func unknownArchitectureError(code string) *UploadError {
	return unprocessable("Unknown architecture: %s", code)
}

func conflictError(codes []string) *UploadError {
	return &UploadError{
		Status:  http.StatusConflict,
		Message: fmt.Sprintf("Conflicting architectures: %s", strings.Join(codes, ", ")),
	}
}
