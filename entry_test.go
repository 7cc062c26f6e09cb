// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

package appshell

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("entry document sources", func() {

	var entrypath string

	BeforeEach(func() {
		entrypath = filepath.Join(newWorkDir("app"), DistDir, "app", EntryDocumentName)
	})

	readString := func(src EntrySource) func() (string, error) {
		return func() (string, error) {
			contents, err := src.Read()
			return string(contents), err
		}
	}

	Context("reading from disk", func() {

		It("reads fresh on each call", func() {
			src := &DiskEntry{Path: entrypath}
			Expect(string(Successful(src.Read()))).To(Equal(canaryIndex))
			Expect(os.WriteFile(entrypath, []byte("<html>UPDATED</html>"), 0o644)).To(Succeed())
			Expect(string(Successful(src.Read()))).To(Equal("<html>UPDATED</html>"))
		})

		It("reports a missing entry document", func() {
			Expect(os.Remove(entrypath)).To(Succeed())
			_, err := (&DiskEntry{Path: entrypath}).Read()
			Expect(err).To(MatchError(ErrEntryUnavailable))
			Expect(err).To(MatchError(fs.ErrNotExist))
		})

	})

	Context("caching and watching", func() {

		It("fails for a non-existing directory", func() {
			_, err := NewWatchedEntry(filepath.Join(entrypath, "nada", "index.html"),
				NewFaultSink(quietly, FaultContinue))
			Expect(err).To(HaveOccurred())
		})

		It("picks up changes, removals, and recreations", func() {
			src := Successful(NewWatchedEntry(entrypath, NewFaultSink(quietly, FaultContinue)))
			defer func() { Expect(src.Close()).To(Succeed()) }()

			Expect(readString(src)()).To(Equal(canaryIndex))

			Expect(os.WriteFile(entrypath, []byte("<html>UPDATED</html>"), 0o644)).To(Succeed())
			Eventually(readString(src)).Within(5 * time.Second).ProbeEvery(20 * time.Millisecond).
				Should(Equal("<html>UPDATED</html>"))

			Expect(os.Remove(entrypath)).To(Succeed())
			Eventually(func() error {
				_, err := src.Read()
				return err
			}).Within(5 * time.Second).ProbeEvery(20 * time.Millisecond).
				Should(MatchError(ErrEntryUnavailable))

			// atomically replace, the way deployments usually do it.
			tmp := entrypath + ".tmp"
			Expect(os.WriteFile(tmp, []byte("<html>RECREATED</html>"), 0o644)).To(Succeed())
			Expect(os.Rename(tmp, entrypath)).To(Succeed())
			Eventually(readString(src)).Within(5 * time.Second).ProbeEvery(20 * time.Millisecond).
				Should(Equal("<html>RECREATED</html>"))
		})

		It("closes idempotently", func() {
			src := Successful(NewWatchedEntry(entrypath, NewFaultSink(quietly, FaultContinue)))
			Expect(src.Close()).To(Succeed())
			Expect(src.Close()).To(Succeed())
		})

	})

})
