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
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/SynoCommunity/spkrepo/dirs"
	"github.com/SynoCommunity/spkrepo/osutil"
	"github.com/SynoCommunity/spkrepo/spk"
	"github.com/SynoCommunity/spkrepo/store"
)

var (
	firmwareRe = regexp.MustCompile(`^(\d\.\d)-(\d{3,6})$`)
	versionRe  = regexp.MustCompile(`^(.*)-(\d+)$`)
)

// UploadResult is the 201 payload of a successful upload.
type UploadResult struct {
	Package       string   `json:"package"`
	Version       string   `json:"version"`
	Firmware      string   `json:"firmware"`
	Architectures []string `json:"architectures"`
}

// UploadSPK validates and reconciles one uploaded SPK. The created
// build starts out inactive. Files are written before the transaction
// commits and removed again when it does not.
func (m *Manager) UploadSPK(ctx context.Context, user *store.User, data []byte) (*UploadResult, error) {
	s, err := spk.Parse(data)
	if err != nil {
		return nil, err
	}
	if s.Signature != nil {
		return nil, errSignedUpload
	}

	uploadData := data
	if m.signer != nil && m.signer.Active() {
		signature, err := m.signer.Sign(ctx, s.CanonicalBytes())
		if err != nil {
			m.log.WithError(err).Error("cannot sign uploaded package")
			return nil, &UploadError{Status: http.StatusInternalServerError, Message: "Failed to sign package"}
		}
		uploadData, err = s.WithSignature(signature)
		if err != nil {
			return nil, err
		}
	}

	var result *UploadResult
	var cleanup func()
	err = m.store.WithTx(ctx, func(tx Tx) error {
		result, cleanup, err = m.reconcileUpload(ctx, tx, user, s, uploadData)
		return err
	})
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, err
	}
	return result, nil
}

func (m *Manager) reconcileUpload(ctx context.Context, tx Tx, user *store.User, s *spk.SPK, uploadData []byte) (result *UploadResult, cleanup func(), err error) {
	archs, err := resolveArchitectures(ctx, tx, s.Info["arch"])
	if err != nil {
		return nil, nil, err
	}
	fwMin, fwMax, err := resolveFirmware(ctx, tx, s)
	if err != nil {
		return nil, nil, err
	}

	createPackage := false
	pkg, err := tx.PackageByName(ctx, s.Info["package"])
	if errors.Is(err, store.ErrNotFound) {
		if !user.HasRole("package_admin") {
			return nil, nil, forbidden("Insufficient permissions to create new packages")
		}
		createPackage = true
		pkg, err = tx.CreatePackage(ctx, s.Info["package"], user.ID)
		if err != nil {
			return nil, nil, err
		}
	} else if err != nil {
		return nil, nil, err
	} else if !user.HasRole("package_admin") {
		maintainer, err := tx.IsMaintainer(ctx, pkg.ID, user.ID)
		if err != nil {
			return nil, nil, err
		}
		if !maintainer {
			return nil, nil, forbidden("Insufficient permissions on this package")
		}
	}

	upstream, number, err := parseVersionString(s.Info["version"])
	if err != nil {
		return nil, nil, err
	}
	createVersion := false
	ver, err := tx.VersionByNumber(ctx, pkg.ID, number)
	if errors.Is(err, store.ErrNotFound) {
		createVersion = true
		ver = versionFromSPK(pkg.ID, number, upstream, s)
		if err := tx.CreateVersion(ctx, ver); err != nil {
			return nil, nil, err
		}
		if err := applyVersionMetadata(ctx, tx, ver, pkg.Name, s); err != nil {
			return nil, nil, err
		}
	} else if err != nil {
		return nil, nil, err
	} else {
		codes, err := tx.ConflictingArchitectures(ctx, ver.ID, fwMin.ID, architectureIDs(archs))
		if err != nil {
			return nil, nil, err
		}
		if len(codes) > 0 {
			return nil, nil, conflictError(codes)
		}
	}

	b := &store.Build{
		VersionID:     ver.ID,
		FirmwareMinID: fwMin.ID,
		PublisherID:   &user.ID,
		Checksum:      infoPtr(s, "checksum"),
		Path:          BuildPath(pkg.Name, ver.Version, fwMin.Build, architectureCodes(archs)),
	}
	if fwMax != nil {
		b.FirmwareMaxID = &fwMax.ID
	}
	if err := tx.CreateBuild(ctx, b, architectureIDs(archs)); err != nil {
		return nil, nil, err
	}
	if err := tx.SetBuildManifest(ctx, manifestFromSPK(b.ID, s)); err != nil {
		return nil, nil, err
	}

	cleanup, err = m.writeUploadFiles(pkg.Name, ver.Version, createPackage, createVersion, s, uploadData, b.Path)
	if err != nil {
		m.log.WithError(err).Error("cannot save uploaded files")
		return nil, cleanup, &UploadError{Status: http.StatusInternalServerError, Message: "Failed to save files"}
	}
	md5 := osutil.MD5Sum(uploadData)
	if err := tx.SetBuildMD5(ctx, b.ID, &md5); err != nil {
		return nil, cleanup, err
	}

	result = &UploadResult{
		Package:       pkg.Name,
		Version:       ver.VersionString(),
		Firmware:      fwMin.String(),
		Architectures: architectureCodes(archs),
	}
	return result, cleanup, nil
}

func resolveArchitectures(ctx context.Context, tx Tx, field string) ([]*store.Architecture, error) {
	var archs []*store.Architecture
	for _, token := range strings.Fields(field) {
		a, err := tx.ArchitectureBySynoCode(ctx, token)
		if errors.Is(err, store.ErrNotFound) {
			return nil, unknownArchitectureError(token)
		}
		if err != nil {
			return nil, err
		}
		archs = append(archs, a)
	}
	return archs, nil
}

func architectureIDs(archs []*store.Architecture) []int64 {
	ids := make([]int64, len(archs))
	for i, a := range archs {
		ids[i] = a.ID
	}
	return ids
}

func architectureCodes(archs []*store.Architecture) []string {
	codes := make([]string, len(archs))
	for i, a := range archs {
		codes[i] = a.Code
	}
	return codes
}

// resolveFirmware maps the INFO firmware range onto known firmware
// rows. The firmware key wins over os_min_ver when both are present.
func resolveFirmware(ctx context.Context, tx Tx, s *spk.SPK) (fwMin, fwMax *store.Firmware, err error) {
	input, ok := s.Info["firmware"]
	if !ok {
		input = s.Info["os_min_ver"]
	}
	fwMin, err = firmwareByString(ctx, tx, input)
	if err != nil {
		return nil, nil, err
	}
	if maxInput, ok := s.Info["os_max_ver"]; ok {
		fwMax, err = firmwareByString(ctx, tx, maxInput)
		if err != nil {
			return nil, nil, err
		}
		if fwMax.Build < fwMin.Build {
			return nil, nil, errInvalidFirmware
		}
	}
	return fwMin, fwMax, nil
}

func firmwareByString(ctx context.Context, tx Tx, input string) (*store.Firmware, error) {
	match := firmwareRe.FindStringSubmatch(input)
	if match == nil {
		return nil, errInvalidFirmware
	}
	build, err := strconv.Atoi(match[2])
	if err != nil {
		return nil, errInvalidFirmware
	}
	fw, err := tx.FirmwareByBuild(ctx, build)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errUnknownFirmware
	}
	if err != nil {
		return nil, err
	}
	return fw, nil
}

func parseVersionString(input string) (upstream string, number int, err error) {
	match := versionRe.FindStringSubmatch(input)
	if match == nil {
		return "", 0, errInvalidVersion
	}
	number, err = strconv.Atoi(match[2])
	if err != nil {
		return "", 0, errInvalidVersion
	}
	return match[1], number, nil
}

func infoPtr(s *spk.SPK, key string) *string {
	if v, ok := s.Info[key]; ok {
		return &v
	}
	return nil
}

func versionFromSPK(packageID int64, number int, upstream string, s *spk.SPK) *store.Version {
	installWizard := s.Wizards["install"]
	upgradeWizard := s.Wizards["upgrade"]
	return &store.Version{
		PackageID:       packageID,
		Version:         number,
		UpstreamVersion: upstream,
		Changelog:       infoPtr(s, "changelog"),
		ReportURL:       infoPtr(s, "report_url"),
		Distributor:     infoPtr(s, "distributor"),
		DistributorURL:  infoPtr(s, "distributor_url"),
		Maintainer:      infoPtr(s, "maintainer"),
		MaintainerURL:   infoPtr(s, "maintainer_url"),
		InstallWizard:   &installWizard,
		UpgradeWizard:   &upgradeWizard,
		Startable:       startableFromSPK(s),
		License:         s.License,
	}
}

// startableFromSPK derives the tri-valued startable flag: an explicit
// "no" on either startable or ctl_stop wins, then an explicit "yes",
// otherwise unknown.
func startableFromSPK(s *spk.SPK) *bool {
	startable, hasStartable := s.BoolInfo["startable"]
	ctlStop, hasCtlStop := s.BoolInfo["ctl_stop"]
	switch {
	case hasStartable && !startable, hasCtlStop && !ctlStop:
		v := false
		return &v
	case hasStartable && startable, hasCtlStop && ctlStop:
		v := true
		return &v
	}
	return nil
}

// applyVersionMetadata attaches the localized names and descriptions,
// the service dependencies and the icon rows of a freshly created or
// re-synced version.
func applyVersionMetadata(ctx context.Context, tx Tx, ver *store.Version, packageName string, s *spk.SPK) error {
	for key, value := range s.Info {
		switch {
		case key == "displayname":
			if err := setLocalized(ctx, tx, tx.SetDisplayName, ver.ID, "enu", value, "displayname"); err != nil {
				return err
			}
		case strings.HasPrefix(key, "displayname_"):
			lang := strings.SplitN(key, "_", 2)[1]
			if err := setLocalized(ctx, tx, tx.SetDisplayName, ver.ID, lang, value, "displayname"); err != nil {
				return err
			}
		case key == "description":
			if err := setLocalized(ctx, tx, tx.SetDescription, ver.ID, "enu", value, "description"); err != nil {
				return err
			}
		case strings.HasPrefix(key, "description_"):
			lang := strings.SplitN(key, "_", 2)[1]
			if err := setLocalized(ctx, tx, tx.SetDescription, ver.ID, lang, value, "description"); err != nil {
				return err
			}
		case key == "install_dep_services":
			for _, code := range strings.Fields(value) {
				svc, err := tx.ServiceByCode(ctx, code)
				if errors.Is(err, store.ErrNotFound) {
					svc, err = tx.CreateService(ctx, code)
				}
				if err != nil {
					return err
				}
				if err := tx.AddServiceDependency(ctx, ver.ID, svc.ID); err != nil {
					return err
				}
			}
		}
	}
	for size := range s.Icons {
		if err := tx.UpsertIcon(ctx, ver.ID, size, iconPath(packageName, ver.Version, size)); err != nil {
			return err
		}
	}
	return nil
}

func setLocalized(ctx context.Context, tx Tx, set func(context.Context, int64, int64, string) error, versionID int64, langCode, value, kind string) error {
	lang, err := tx.LanguageByCode(ctx, langCode)
	if errors.Is(err, store.ErrNotFound) {
		return unprocessable("Unknown INFO %s language", kind)
	}
	if err != nil {
		return err
	}
	return set(ctx, versionID, lang.ID, value)
}

// writeUploadFiles persists the filesystem side of an upload. The
// returned cleanup undoes exactly what this upload created, leaving
// preexisting package or version directories alone.
func (m *Manager) writeUploadFiles(packageName string, versionNumber int, createPackage, createVersion bool, s *spk.SPK, uploadData []byte, buildPath string) (cleanup func(), err error) {
	buildFile, err := dirs.DataFile(buildPath)
	if err != nil {
		return nil, err
	}
	switch {
	case createPackage:
		cleanup = func() { os.RemoveAll(dirs.PackageDir(packageName)) }
	case createVersion:
		cleanup = func() { os.RemoveAll(dirs.VersionDir(packageName, versionNumber)) }
	default:
		cleanup = func() { os.Remove(buildFile) }
	}

	if err := os.MkdirAll(dirs.VersionDir(packageName, versionNumber), 0755); err != nil {
		return cleanup, err
	}
	if createVersion {
		for size, icon := range s.Icons {
			name := filepath.Join(dirs.VersionDir(packageName, versionNumber), "icon_"+size+".png")
			if err := osutil.AtomicWriteFile(name, icon, 0644); err != nil {
				return cleanup, err
			}
		}
	}
	if err := osutil.AtomicWriteFile(buildFile, uploadData, 0644); err != nil {
		return cleanup, err
	}
	return cleanup, nil
}

func manifestFromSPK(buildID int64, s *spk.SPK) *store.BuildManifest {
	return &store.BuildManifest{
		BuildID:          buildID,
		Dependencies:     infoPtr(s, "install_dep_packages"),
		ConfDependencies: s.ConfDependencies,
		Conflicts:        infoPtr(s, "install_conflict_packages"),
		ConfConflicts:    s.ConfConflicts,
		ConfPrivilege:    s.ConfPrivilege,
		ConfResource:     s.ConfResource,
	}
}
