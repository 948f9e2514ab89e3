/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package resolve

import "fmt"

// ResolutionError means no snapshot could be produced: the descriptor or
// settings could not be parsed or read, or the engine failed outright.
type ResolutionError struct {
	Op  string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// PartialArtifactError means the artifacts of one module could not be
// inspected. The module is still recorded, without artifacts.
type PartialArtifactError struct {
	Module string
	Err    error
}

func (e *PartialArtifactError) Error() string {
	return fmt.Sprintf("can't retrieve artifacts for dependency %s: %v", e.Module, e.Err)
}

func (e *PartialArtifactError) Unwrap() error {
	return e.Err
}
