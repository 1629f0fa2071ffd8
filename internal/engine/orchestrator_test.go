package engine_test

import (
	"errors"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/branchgrow/internal/canvas"
	"github.com/san-kum/branchgrow/internal/engine"
	"github.com/san-kum/branchgrow/internal/growth"
)

func smallSettings(branches int) engine.Settings {
	s := engine.DefaultSettings()
	s.Width = 200
	s.Height = 200
	s.Branches = branches
	s.Seed = 7
	s.Workers = 2
	return s
}

func occupancy(c *canvas.Canvas) []bool {
	out := make([]bool, 0, c.Width()*c.Height())
	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			out = append(out, c.Occupied(x, y))
		}
	}
	return out
}

// draws captures what a branch sampled from its stream at spawn.
type draws struct {
	Segment   int
	Color     [4]float64
	Direction [3]float64
}

func spawnDraws(bs []*growth.Branch) []draws {
	out := make([]draws, len(bs))
	for i, b := range bs {
		out[i] = draws{Segment: b.SegmentLength(), Color: b.Color(), Direction: b.Direction()}
	}
	return out
}

var _ = Describe("Orchestrator", func() {
	var (
		settings engine.Settings
		orch     *engine.Orchestrator
	)

	BeforeEach(func() {
		settings = smallSettings(5)
	})

	JustBeforeEach(func() {
		var err error
		orch, err = engine.New(settings)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(orch.Close()).To(Succeed())
	})

	Describe("construction", func() {
		It("spawns the configured population inside the canvas", func() {
			branches := orch.Branches()
			Expect(branches).To(HaveLen(5))
			for _, b := range branches {
				Expect(b.State()).To(Equal(growth.Running))
				Expect(b.Age()).To(BeZero())
				p := b.Position()
				Expect(orch.Canvas().InBounds(p.X, p.Y)).To(BeTrue())
			}
			Expect(orch.Generation()).To(BeZero())
			Expect(orch.Canvas().OccupiedCount()).To(BeZero())
		})

		It("is reproducible for a fixed seed", func() {
			twin, err := engine.New(settings)
			Expect(err).NotTo(HaveOccurred())
			defer twin.Close()

			for i := range orch.Branches() {
				Expect(twin.Branches()[i].Position()).To(Equal(orch.Branches()[i].Position()))
				Expect(twin.Branches()[i].SegmentLength()).To(Equal(orch.Branches()[i].SegmentLength()))
			}
			for i := 0; i < 10; i++ {
				orch.Tick(0.016)
				twin.Tick(0.016)
			}
			Expect(occupancy(twin.Canvas())).To(Equal(occupancy(orch.Canvas())))
		})
	})

	DescribeTable("rejects invalid settings",
		func(mutate func(s *engine.Settings)) {
			s := smallSettings(3)
			mutate(&s)
			_, err := engine.New(s)
			Expect(err).To(MatchError(growth.ErrInvalidConfig))
		},
		Entry("no branches", func(s *engine.Settings) { s.Branches = 0 }),
		Entry("too many branches", func(s *engine.Settings) { s.Branches = engine.MaxBranches + 1 }),
		Entry("zero width", func(s *engine.Settings) { s.Width = 0 }),
		Entry("negative workers", func(s *engine.Settings) { s.Workers = -1 }),
		Entry("bad segment range", func(s *engine.Settings) { s.Growth.SegmentMin = 400; s.Growth.SegmentMax = 500 }),
	)

	Describe("barrier mode", func() {
		It("runs every running branch exactly once per tick", func() {
			var calls atomic.Int64
			orch.SetAdvance(func(b *growth.Branch, c *canvas.Canvas, dt float64) {
				calls.Add(1)
				b.Advance(c, dt)
			})
			for i := 0; i < 3; i++ {
				orch.Tick(0.016)
			}
			Expect(calls.Load()).To(Equal(int64(15)))
			Expect(orch.Ticks()).To(Equal(int64(3)))
		})
	})

	Describe("population reset", func() {
		BeforeEach(func() {
			settings.Growth.Lifetime = 100
		})

		It("clears the canvas and respawns once every branch has stopped", func() {
			initial := spawnDraws(orch.Branches())
			orch.Tick(0.05)
			Expect(orch.Generation()).To(BeZero())
			Expect(orch.Canvas().OccupiedCount()).To(BeNumerically(">", 0))
			first := orch.Branches()

			orch.Tick(0.05)

			Expect(orch.Generation()).To(Equal(1))
			Expect(orch.Canvas().OccupiedCount()).To(BeZero())
			c := orch.Canvas()
			for y := 0; y < c.Height(); y++ {
				for x := 0; x < c.Width(); x++ {
					Expect(c.At(x, y)).To(Equal(canvas.Background), "pixel (%d, %d)", x, y)
				}
			}

			second := orch.Branches()
			Expect(second).To(HaveLen(5))
			respawned := spawnDraws(second)
			for i, b := range second {
				Expect(b).NotTo(BeIdenticalTo(first[i]))
				Expect(b.State()).To(Equal(growth.Running))
				Expect(b.Age()).To(BeZero())
				Expect(b.Position()).To(Equal(b.Path()[0]))
				Expect(respawned[i].Color).NotTo(Equal(initial[i].Color), "branch %d", i)
			}
			Expect(respawned).NotTo(Equal(initial))

			var starts, restarts []growth.Position
			for i := range second {
				starts = append(starts, first[i].Path()[0])
				restarts = append(restarts, second[i].Path()[0])
			}
			Expect(restarts).NotTo(Equal(starts))
		})

		It("gives consecutive seeds independent streams after a reset", func() {
			s1 := smallSettings(5)
			s1.Seed = 1
			a, err := engine.New(s1)
			Expect(err).NotTo(HaveOccurred())
			defer a.Close()
			a.Reset()
			Expect(a.Generation()).To(Equal(1))

			s2 := smallSettings(5)
			s2.Seed = 2
			b, err := engine.New(s2)
			Expect(err).NotTo(HaveOccurred())
			defer b.Close()

			fromA, fromB := spawnDraws(a.Branches()), spawnDraws(b.Branches())
			for i := range fromA {
				Expect(fromA[i].Color).NotTo(Equal(fromB[i].Color), "branch %d", i)
			}
		})

		It("replays the same generations for the same seed", func() {
			other, err := engine.New(settings)
			Expect(err).NotTo(HaveOccurred())
			defer other.Close()

			orch.Reset()
			other.Reset()
			Expect(spawnDraws(other.Branches())).To(Equal(spawnDraws(orch.Branches())))
		})

		It("resets on the next tick after the population is killed", func() {
			for _, b := range orch.Branches() {
				b.Kill()
			}
			orch.Tick(0.016)
			Expect(orch.Generation()).To(Equal(1))
			Expect(orch.Live()).To(Equal(5))
		})

		It("keeps the population while any branch is running", func() {
			for _, b := range orch.Branches()[1:] {
				b.Kill()
			}
			orch.Tick(0.016)
			Expect(orch.Generation()).To(BeZero())
			Expect(orch.Live()).To(Equal(1))
		})
	})

	Describe("fault containment", func() {
		It("stops only the faulting branch and records the panic", func() {
			orch.SetAdvance(func(b *growth.Branch, c *canvas.Canvas, dt float64) {
				if b.ID() == 2 {
					panic("bad step")
				}
				b.Advance(c, dt)
			})

			orch.Tick(0.016)

			Expect(orch.FaultCount()).To(Equal(int64(1)))
			faults := orch.Faults()
			Expect(faults).To(HaveLen(1))
			Expect(faults[0].Branch).To(Equal(2))
			Expect(faults[0].Tick).To(Equal(int64(1)))
			Expect(errors.Is(faults[0], growth.ErrTaskPanic)).To(BeTrue())

			for _, b := range orch.Branches() {
				if b.ID() == 2 {
					Expect(b.State()).To(Equal(growth.Stopped))
				} else {
					Expect(b.State()).To(Equal(growth.Running))
				}
			}
			Expect(orch.Stats().Faults).To(Equal(int64(1)))
		})

		It("resets when every branch faults", func() {
			orch.SetAdvance(func(*growth.Branch, *canvas.Canvas, float64) {
				panic(errors.New("always"))
			})
			orch.Tick(0.016)
			Expect(orch.FaultCount()).To(Equal(int64(5)))
			Expect(orch.Generation()).To(Equal(1))
		})
	})

	Describe("relaxed mode", func() {
		BeforeEach(func() {
			settings.Mode = engine.Relaxed
		})

		It("does not resubmit a branch whose task is still in flight", func() {
			release := make(chan struct{})
			var slow atomic.Int64
			orch.SetAdvance(func(b *growth.Branch, c *canvas.Canvas, dt float64) {
				if b.ID() == 0 {
					slow.Add(1)
					<-release
				}
				b.Advance(c, dt)
			})

			for i := 0; i < 4; i++ {
				orch.Tick(0.016)
			}
			Eventually(slow.Load).Should(Equal(int64(1)))
			Consistently(slow.Load, "50ms").Should(Equal(int64(1)))

			close(release)
			orch.Drain()
			orch.Tick(0.016)
			orch.Drain()
			Expect(slow.Load()).To(Equal(int64(2)))
		})
	})

	Describe("Close", func() {
		It("turns Tick into a no-op", func() {
			Expect(orch.Close()).To(Succeed())
			orch.Tick(0.016)
			Expect(orch.Ticks()).To(BeZero())
		})
	})

	Describe("stroke history cap", func() {
		It("fills in the cap from the population size", func() {
			Expect(orch.Settings().Growth.MaxStrokes).To(Equal(engine.StrokeCap(5)))
		})

		It("keeps an explicit cap", func() {
			s := smallSettings(5)
			s.Growth.MaxStrokes = 8
			o, err := engine.New(s)
			Expect(err).NotTo(HaveOccurred())
			defer o.Close()
			Expect(o.Settings().Growth.MaxStrokes).To(Equal(8))
		})

		It("bounds the population's total history", func() {
			Expect(engine.StrokeCap(1)).To(Equal(growth.MaxPath))
			Expect(engine.StrokeCap(engine.DefaultBranches)).To(Equal(growth.MaxPath))
			Expect(engine.StrokeCap(1000)).To(Equal(engine.StrokeBudget / 1000))
			Expect(engine.StrokeCap(engine.MaxBranches)).To(Equal(engine.MinStrokes))
			for _, n := range []int{1, 128, 1000, 4096} {
				Expect(n * engine.StrokeCap(n)).To(BeNumerically("<=", engine.StrokeBudget))
			}
		})
	})
})
