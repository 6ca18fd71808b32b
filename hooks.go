package playback

type Hook func(s *Scheduler)

type ErrorHook func(s *Scheduler, err error)

// AddAfterFrameHook adds a hook that runs after every advanced frame
func (s *Scheduler) AddAfterFrameHook(h Hook) int {
	s.afterFrameHooks = append(s.afterFrameHooks, h)

	return len(s.afterFrameHooks)
}

// AddMovieEndHook adds a hook that runs once when a replay consumes its last frame
func (s *Scheduler) AddMovieEndHook(h Hook) int {
	s.movieEndHooks = append(s.movieEndHooks, h)

	return len(s.movieEndHooks)
}

// AddErrorHook adds a hook that runs when the emulator fails during a tick
func (s *Scheduler) AddErrorHook(h ErrorHook) int {
	s.errorHooks = append(s.errorHooks, h)

	return len(s.errorHooks)
}

func (s *Scheduler) runHooks(hooks []Hook) {
	for _, h := range hooks {
		h(s)
	}
}

func (s *Scheduler) runErrorHooks(err error) {
	for _, h := range s.errorHooks {
		h(s, err)
	}
}
