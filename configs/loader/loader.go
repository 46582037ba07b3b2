package loader

type ConfigLoader interface {
	Load() (map[string]string, error)
}

// MapLoader serves a fixed set of variables.
type MapLoader map[string]string

func (l MapLoader) Load() (map[string]string, error) {
	envs := make(map[string]string, len(l))
	for k, v := range l {
		envs[k] = v
	}
	return envs, nil
}
