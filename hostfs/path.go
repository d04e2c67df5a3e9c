package hostfs

// ConvertPath maps path separators between the archive convention and the
// host convention. It returns path unchanged when sep is '/'; otherwise every
// '/' becomes '\' and every '\' becomes '/'.
func ConvertPath(path string, sep byte) string {
	if sep == '/' {
		return path
	}
	b := []byte(path)
	for i, c := range b {
		switch c {
		case '/':
			b[i] = '\\'
		case '\\':
			b[i] = '/'
		}
	}
	return string(b)
}
