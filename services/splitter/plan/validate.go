// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package plan

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidPlan wraps every structural validation failure.
var ErrInvalidPlan = errors.New("invalid plan")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func planValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// relpath: a clean relative path that stays below the source directory.
		_ = validate.RegisterValidation("relpath", func(fl validator.FieldLevel) bool {
			return isRelativeDestination(fl.Field().String())
		})
	})
	return validate
}

func isRelativeDestination(dest string) bool {
	if dest == "" {
		return false
	}
	dest = strings.ReplaceAll(dest, "\\", "/")
	if path.IsAbs(dest) || (len(dest) > 1 && dest[1] == ':') {
		return false
	}
	for _, part := range strings.Split(dest, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// Validate checks the structure of a decoded plan.
//
// Description:
//
//	Struct rules (a non-empty group list, a destination and at least one
//	item per group, relative destinations) are enforced by the validator.
//	Cross-group rules are checked afterwards: an item may be assigned to
//	only one destination per source file.
//
// Outputs:
//
//	error - ErrEmptyPlan, or ErrInvalidPlan wrapping the first problem.
func Validate(p *SplitPlan) error {
	if p == nil || len(p.Groups) == 0 {
		return ErrEmptyPlan
	}

	if err := planValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidPlan, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	type key struct{ file, name string }
	owner := make(map[key]string)
	for i, g := range p.Groups {
		for _, it := range g.Items {
			if err := it.check(); err != nil {
				return fmt.Errorf("%w: group %d (%s): %v", ErrMalformedItem, i, g.Destination, err)
			}
			names := []string{it.OriginalName()}
			if it.IsClass() && len(it.Methods) > 0 {
				names = names[:0]
				for _, m := range it.Methods {
					names = append(names, it.Class+"."+m.Name)
				}
			}
			for _, name := range names {
				k := key{g.File, name}
				if prev, ok := owner[k]; ok && prev != g.Destination {
					return fmt.Errorf("%w: %s assigned to both %s and %s", ErrInvalidPlan, name, prev, g.Destination)
				}
				owner[k] = g.Destination
			}
		}
	}
	return nil
}
