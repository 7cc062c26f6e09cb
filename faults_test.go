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
	"bytes"
	"net/http"
	"sync"

	"github.com/google/uuid"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/appshell/test/httptest"
)

// syncBuffer is a bytes.Buffer safe for concurrent use by background
// goroutines and test code.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ = Describe("fault sink", func() {

	DescribeTable("parses fault policies",
		func(s string, expected FaultPolicy, fails bool) {
			policy, err := ParseFaultPolicy(s)
			if fails {
				Expect(err).To(HaveOccurred())
			} else {
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(policy).To(Equal(expected))
			Expect(policy.String()).To(Equal(expected.String()))
		},
		Entry(nil, "terminate", FaultTerminate, false),
		Entry(nil, " Continue ", FaultContinue, false),
		Entry(nil, "reboot", FaultTerminate, true),
	)

	It("reports faults with an incident ID and stack", func() {
		var logbuf syncBuffer
		incident := NewFaultSink(newTestLogger(&logbuf), FaultContinue).
			Report("D'OH!", "answer", 42)
		_, err := uuid.Parse(incident)
		Expect(err).NotTo(HaveOccurred())
		Expect(logbuf.String()).To(And(
			ContainSubstring("uncaught fault"),
			ContainSubstring("incident="+incident),
			ContainSubstring("answer=42"),
			ContainSubstring("D'OH!"),
			ContainSubstring("stack=")))
	})

	When("recovering from request faults", func() {

		It("answers with a 500 and keeps serving", func() {
			var logbuf syncBuffer
			sink := NewFaultSink(newTestLogger(&logbuf), FaultTerminate)
			sink.exit = func(int) { Fail("must not exit on request-scoped faults") }
			h := sink.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/panic" {
					panic("D'OH!")
				}
				_, _ = w.Write([]byte("fine"))
			}))
			w := Do(h, http.MethodGet, "/panic")
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Header().Get("X-Incident-Id")).NotTo(BeEmpty())
			Expect(logbuf.String()).To(And(
				ContainSubstring("scope=request"),
				ContainSubstring("path=/panic")))

			w = Do(h, http.MethodGet, "/other")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("fine"))
		})

		It("lets net/http abort handlers", func() {
			h := NewFaultSink(quietly, FaultContinue).Recoverer(
				http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
					panic(http.ErrAbortHandler)
				}))
			Expect(func() { Do(h, http.MethodGet, "/") }).To(PanicWith(http.ErrAbortHandler))
		})

	})

	When("running background work", func() {

		It("terminates after reporting a fault", func() {
			var logbuf syncBuffer
			sink := NewFaultSink(newTestLogger(&logbuf), FaultTerminate)
			exitcode := make(chan int, 1)
			sink.exit = func(code int) { exitcode <- code }
			sink.Go(func() { panic("D'OH!") })
			Eventually(exitcode).Should(Receive(Equal(FaultExitCode)))
			Expect(logbuf.String()).To(ContainSubstring("scope=background"))
		})

		It("continues after reporting a fault", func() {
			var logbuf syncBuffer
			sink := NewFaultSink(newTestLogger(&logbuf), FaultContinue)
			sink.exit = func(int) { Fail("must not exit") }
			sink.Go(func() { panic("D'OH!") })
			Eventually(logbuf.String).Should(ContainSubstring("scope=background"))
		})

		It("stays silent when all is fine", func() {
			var logbuf syncBuffer
			done := make(chan struct{})
			NewFaultSink(newTestLogger(&logbuf), FaultTerminate).Go(func() { close(done) })
			Eventually(done).Should(BeClosed())
			Consistently(logbuf.String).Should(BeEmpty())
		})

	})

})
