package congestion

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestCongestion(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Congestion Suite")
}

var _ = Describe("windowedExtremum", func() {
	It("tracks the running maximum within the window", func() {
		f := newWindowedMax[uint64](10)
		f.update(100, 0)
		f.update(200, 1)
		f.update(50, 2)
		Expect(f.getValue()).To(Equal(uint64(200)))
	})

	It("evicts the incumbent once it falls outside the window", func() {
		f := newWindowedMax[uint64](10)
		f.update(200, 0)
		f.update(50, 5)
		Expect(f.getValue()).To(Equal(uint64(200)))
		f.update(60, 11)
		Expect(f.getValue()).To(Equal(uint64(60)))
	})

	It("tracks the running minimum when configured as a min filter", func() {
		f := newWindowedMin[uint64](10)
		f.update(200, 0)
		f.update(50, 1)
		f.update(300, 2)
		Expect(f.getValue()).To(Equal(uint64(50)))
	})

	It("is empty until the first update", func() {
		f := newWindowedMax[uint64](10)
		_, _, ok := f.get()
		Expect(ok).To(BeFalse())
	})

	It("reset forgets every prior sample", func() {
		f := newWindowedMax[uint64](10)
		f.update(5, 0)
		f.reset()
		_, _, ok := f.get()
		Expect(ok).To(BeFalse())
	})

	// A new global maximum always immediately dominates the filter,
	// regardless of how many entries preceded it (law L2 in the spec).
	It("a fresh global max always wins immediately", func() {
		f := newWindowedMax[uint64](10)
		for i := uint64(0); i < 9; i++ {
			f.update(i, i)
		}
		f.update(1000, 9)
		Expect(f.getValue()).To(Equal(uint64(1000)))
	})
})
