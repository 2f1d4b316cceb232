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

package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/SynoCommunity/spkrepo/repo"
	"github.com/SynoCommunity/spkrepo/spk"
	"github.com/SynoCommunity/spkrepo/store"
)

// Response knows how to serve itself.
type Response interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

type jsonResponse struct {
	status int
	result interface{}
}

func (rsp *jsonResponse) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	bs, err := json.Marshal(rsp.result)
	if err != nil {
		logrus.WithError(err).Errorf("cannot marshal %#v to JSON", rsp.result)
		errorResponse(http.StatusInternalServerError, "Internal server error").ServeHTTP(w, nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.status)
	w.Write(bs)
}

// SyncResponse serves the result as a 200 JSON body.
func SyncResponse(result interface{}) Response {
	return &jsonResponse{status: http.StatusOK, result: result}
}

// CreatedResponse serves the result as a 201 JSON body.
func CreatedResponse(result interface{}) Response {
	return &jsonResponse{status: http.StatusCreated, result: result}
}

type errorMessage struct {
	Message string `json:"message"`
}

func errorResponse(status int, format string, v ...interface{}) Response {
	return &jsonResponse{
		status: status,
		result: &errorMessage{Message: fmt.Sprintf(format, v...)},
	}
}

// BadRequest is an error response with status 400.
func BadRequest(format string, v ...interface{}) Response {
	return errorResponse(http.StatusBadRequest, format, v...)
}

// Unauthorized is an error response with status 401.
func Unauthorized(format string, v ...interface{}) Response {
	return errorResponse(http.StatusUnauthorized, format, v...)
}

// Forbidden is an error response with status 403.
func Forbidden(format string, v ...interface{}) Response {
	return errorResponse(http.StatusForbidden, format, v...)
}

// NotFound is an error response with status 404.
func NotFound(format string, v ...interface{}) Response {
	return errorResponse(http.StatusNotFound, format, v...)
}

// BadMethod is an error response with status 405.
func BadMethod(format string, v ...interface{}) Response {
	return errorResponse(http.StatusMethodNotAllowed, format, v...)
}

// Unprocessable is an error response with status 422.
func Unprocessable(format string, v ...interface{}) Response {
	return errorResponse(http.StatusUnprocessableEntity, format, v...)
}

// InternalError is an error response with status 500.
func InternalError(format string, v ...interface{}) Response {
	return errorResponse(http.StatusInternalServerError, format, v...)
}

// errToResponse maps the domain error types onto their HTTP statuses.
func errToResponse(err error) Response {
	var parseErr *spk.ParseError
	var uploadErr *repo.UploadError
	var signErr *spk.SignError
	switch {
	case errors.As(err, &parseErr):
		return Unprocessable("%s", parseErr.Message)
	case errors.As(err, &uploadErr):
		return errorResponse(uploadErr.Status, "%s", uploadErr.Message)
	case errors.As(err, &signErr):
		return InternalError("%s", signErr.Message)
	case errors.Is(err, spk.ErrAlreadySigned):
		return Unprocessable("Package already has a signature")
	case errors.Is(err, spk.ErrNotSigned):
		return Unprocessable("Package has no signature")
	case errors.Is(err, store.ErrNotFound):
		return NotFound("Not found")
	}
	logrus.WithError(err).Error("internal error")
	return InternalError("Internal server error")
}

// fileResponse streams a file from the filesystem.
type fileResponse string

func (f fileResponse) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, string(f))
}

// redirectResponse replies with a 302 to the given location.
type redirectResponse string

func (loc redirectResponse) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, string(loc), http.StatusFound)
}
