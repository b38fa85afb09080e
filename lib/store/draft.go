package store

import (
	"reflect"
)

// Cloner is implemented by state types that know how to deep-copy
// themselves. Types holding references in unexported fields should
// implement it, since Clone only copies unexported fields shallowly.
type Cloner[T any] interface {
	Clone() T
}

// Clone returns a deep copy of v.
//
// Maps, slices, pointers and interface values reachable through exported
// fields are copied; the result shares no mutable memory with v through
// those paths. Pointer cycles and aliases are preserved. Unexported struct
// fields, funcs and channels are copied by value.
func Clone[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	src := reflect.ValueOf(&v).Elem()
	dst := reflect.New(src.Type()).Elem()
	copyValue(dst, src, make(map[visitKey]reflect.Value))
	out, _ := dst.Interface().(T)
	return out
}

type visitKey struct {
	ptr uintptr
	typ reflect.Type
}

func copyValue(dst, src reflect.Value, seen map[visitKey]reflect.Value) {
	switch src.Kind() {
	case reflect.Pointer:
		if src.IsNil() {
			dst.Set(src)
			return
		}
		key := visitKey{src.Pointer(), src.Type()}
		if p, ok := seen[key]; ok {
			dst.Set(p)
			return
		}
		p := reflect.New(src.Type().Elem())
		seen[key] = p
		copyValue(p.Elem(), src.Elem(), seen)
		dst.Set(p)

	case reflect.Interface:
		if src.IsNil() {
			dst.Set(src)
			return
		}
		elem := src.Elem()
		c := reflect.New(elem.Type()).Elem()
		copyValue(c, elem, seen)
		dst.Set(c)

	case reflect.Map:
		if src.IsNil() {
			dst.Set(src)
			return
		}
		key := visitKey{src.Pointer(), src.Type()}
		if m, ok := seen[key]; ok {
			dst.Set(m)
			return
		}
		m := reflect.MakeMapWithSize(src.Type(), src.Len())
		seen[key] = m
		iter := src.MapRange()
		for iter.Next() {
			v := reflect.New(src.Type().Elem()).Elem()
			copyValue(v, iter.Value(), seen)
			m.SetMapIndex(iter.Key(), v)
		}
		dst.Set(m)

	case reflect.Slice:
		if src.IsNil() {
			dst.Set(src)
			return
		}
		s := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			copyValue(s.Index(i), src.Index(i), seen)
		}
		dst.Set(s)

	case reflect.Array:
		for i := 0; i < src.Len(); i++ {
			copyValue(dst.Index(i), src.Index(i), seen)
		}

	case reflect.Struct:
		dst.Set(src)
		t := src.Type()
		for i := 0; i < src.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			copyValue(dst.Field(i), src.Field(i), seen)
		}

	default:
		dst.Set(src)
	}
}

type visitPair struct {
	next, prev uintptr
	typ        reflect.Type
}

// share reports whether next is structurally equal to prev. Along the
// way, every settable map, slice, pointer or interface subtree of next
// that equals its counterpart in prev is replaced by prev's reference, so
// an updated value shares unchanged memory with its predecessor.
func share(next, prev reflect.Value, seen map[visitPair]bool) bool {
	if !next.IsValid() || !prev.IsValid() {
		return next.IsValid() == prev.IsValid()
	}
	if next.Type() != prev.Type() {
		return false
	}

	switch next.Kind() {
	case reflect.Pointer:
		if next.IsNil() || prev.IsNil() {
			return next.IsNil() && prev.IsNil()
		}
		if next.Pointer() == prev.Pointer() {
			return true
		}
		pair := visitPair{next.Pointer(), prev.Pointer(), next.Type()}
		if eq, ok := seen[pair]; ok {
			return eq
		}
		seen[pair] = true
		eq := share(next.Elem(), prev.Elem(), seen)
		seen[pair] = eq
		if eq && next.CanSet() {
			next.Set(prev)
		}
		return eq

	case reflect.Interface:
		if next.IsNil() || prev.IsNil() {
			return next.IsNil() && prev.IsNil()
		}
		if !next.CanSet() {
			return share(next.Elem(), prev.Elem(), seen)
		}
		tmp := reflect.New(next.Elem().Type()).Elem()
		tmp.Set(next.Elem())
		eq := share(tmp, prev.Elem(), seen)
		if eq {
			next.Set(prev)
		} else {
			next.Set(tmp)
		}
		return eq

	case reflect.Map:
		if next.IsNil() || prev.IsNil() {
			return next.IsNil() && prev.IsNil()
		}
		if next.Pointer() == prev.Pointer() {
			return true
		}
		pair := visitPair{next.Pointer(), prev.Pointer(), next.Type()}
		if eq, ok := seen[pair]; ok {
			return eq
		}
		seen[pair] = true
		eq := next.Len() == prev.Len()
		for _, k := range next.MapKeys() {
			pv := prev.MapIndex(k)
			if !pv.IsValid() {
				eq = false
				continue
			}
			nv := next.MapIndex(k)
			if !next.CanSet() {
				if !share(nv, pv, seen) {
					eq = false
				}
				continue
			}
			tmp := reflect.New(nv.Type()).Elem()
			tmp.Set(nv)
			if !share(tmp, pv, seen) {
				eq = false
			}
			next.SetMapIndex(k, tmp)
		}
		seen[pair] = eq
		if eq && next.CanSet() {
			next.Set(prev)
		}
		return eq

	case reflect.Slice:
		if next.IsNil() || prev.IsNil() {
			return next.IsNil() && prev.IsNil()
		}
		eq := next.Len() == prev.Len()
		n := min(next.Len(), prev.Len())
		for i := 0; i < n; i++ {
			if !share(next.Index(i), prev.Index(i), seen) {
				eq = false
			}
		}
		if eq && next.CanSet() {
			next.Set(prev)
		}
		return eq

	case reflect.Array:
		eq := true
		for i := 0; i < next.Len(); i++ {
			if !share(next.Index(i), prev.Index(i), seen) {
				eq = false
			}
		}
		return eq

	case reflect.Struct:
		eq := true
		for i := 0; i < next.NumField(); i++ {
			if !share(next.Field(i), prev.Field(i), seen) {
				eq = false
			}
		}
		return eq

	case reflect.Func:
		return next.IsNil() && prev.IsNil()

	case reflect.Chan, reflect.UnsafePointer:
		return next.Pointer() == prev.Pointer()

	default:
		return next.Equal(prev)
	}
}
