// common.go
//
// A workflow and ballot engine for assembly motions and elections
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of assemblydb.
// assemblydb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// assemblydb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with assemblydb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/assemblydb/internal/types"
)

// RevisionGuard is embedded in mutation bodies. A present version must
// match the document revision or the mutation fails with E_VERSION.
type RevisionGuard struct {
	Version *types.FlexUint64 `json:"version"`
}

func (g RevisionGuard) expected() *uint64 {
	return flexPtr(g.Version)
}

func flexPtr(f *types.FlexUint64) *uint64 {
	if f == nil {
		return nil
	}
	v := f.Uint64()
	return &v
}

// paramID parses a positive numeric path parameter
func paramID(c *fiber.Ctx, name string) (uint64, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, types.NewError(types.KindInvalidInput, raw, "invalid %s", name)
	}
	return id, nil
}

// parseBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func parseBody(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		c.Request().Header.SetContentType(fiber.MIMEApplicationJSON)
	}
	if err := c.BodyParser(v); err != nil {
		return types.NewError(types.KindInvalidInput, nil, "invalid request body: %v", err)
	}
	return nil
}

// queryBool reads a boolean query parameter
func queryBool(c *fiber.Ctx, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, types.NewError(types.KindInvalidInput, raw, "invalid %s", name)
	}
	return b, nil
}
