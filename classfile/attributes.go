/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import (
	"jdecomp/constpool"
	"jdecomp/reader"
)

// applyClassAttribute decodes the class-level attributes named in section
// 4.3's eager-decode table; anything else is preserved as an opaque
// Attribute, matching "Unknown attribute names are preserved as opaque
// payloads."
func applyClassAttribute(f *File, pool *constpool.Pool, name string, payload []byte) error {
	switch name {
	case "SourceFile":
		r := reader.New(payload)
		idx, err := r.U2()
		if err != nil {
			return err
		}
		s, err := pool.UTF8(int(idx))
		if err != nil {
			return err
		}
		f.SourceFile = s
	case "Signature":
		s, err := decodeSignatureAttribute(payload, pool)
		if err != nil {
			return err
		}
		f.Signature = s
	case "Synthetic":
		f.Synthetic = true
	case "Deprecated":
		f.Deprecated = true
	case "InnerClasses":
		entries, err := decodeInnerClasses(payload, pool)
		if err != nil {
			return err
		}
		f.InnerClasses = entries
	case "BootstrapMethods", "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
		// Recognized but not modeled structurally
		// here (no component consumes bootstrap-method or annotation
		// detail yet); preserved as opaque so nothing is silently dropped.
		f.Unknown = append(f.Unknown, Attribute{Name: name, Data: payload})
	default:
		f.Unknown = append(f.Unknown, Attribute{Name: name, Data: payload})
	}
	return nil
}

func applyFieldAttribute(f *Field, pool *constpool.Pool, name string, payload []byte) error {
	switch name {
	case "ConstantValue":
		r := reader.New(payload)
		idx, err := r.U2()
		if err != nil {
			return err
		}
		v, err := pool.Load(int(idx))
		if err != nil {
			return err
		}
		f.ConstantValue = &v
	case "Signature":
		s, err := decodeSignatureAttribute(payload, pool)
		if err != nil {
			return err
		}
		f.Signature = s
	case "Synthetic":
		f.Synthetic = true
	case "Deprecated":
		f.Deprecated = true
	default:
		f.Unknown = append(f.Unknown, Attribute{Name: name, Data: payload})
	}
	return nil
}

func applyMethodAttribute(m *Method, pool *constpool.Pool, name string, payload []byte, opts Options) error {
	switch name {
	case "Code":
		c, err := decodeCode(payload, pool, opts)
		if err != nil {
			return err
		}
		m.Code = c
	case "Exceptions":
		names, err := decodeExceptionsAttribute(payload, pool)
		if err != nil {
			return err
		}
		m.Exceptions = names
	case "Signature":
		s, err := decodeSignatureAttribute(payload, pool)
		if err != nil {
			return err
		}
		m.Signature = s
	case "Synthetic":
		m.Synthetic = true
	case "Deprecated":
		m.Deprecated = true
	default:
		m.Unknown = append(m.Unknown, Attribute{Name: name, Data: payload})
	}
	return nil
}

func decodeSignatureAttribute(payload []byte, pool *constpool.Pool) (string, error) {
	r := reader.New(payload)
	idx, err := r.U2()
	if err != nil {
		return "", err
	}
	return pool.UTF8(int(idx))
}

func decodeExceptionsAttribute(payload []byte, pool *constpool.Pool) ([]string, error) {
	r := reader.New(payload)
	count, err := r.U2()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		idx, err := r.U2()
		if err != nil {
			return nil, err
		}
		name, err := pool.ClassName(int(idx))
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func decodeInnerClasses(payload []byte, pool *constpool.Pool) ([]InnerClassEntry, error) {
	r := reader.New(payload)
	count, err := r.U2()
	if err != nil {
		return nil, err
	}
	entries := make([]InnerClassEntry, 0, count)
	for i := 0; i < int(count); i++ {
		innerIdx, err := r.U2()
		if err != nil {
			return nil, err
		}
		outerIdx, err := r.U2()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.U2()
		if err != nil {
			return nil, err
		}
		flags, err := r.U2()
		if err != nil {
			return nil, err
		}
		var e InnerClassEntry
		e.AccessFlags = int(flags)
		e.InnerName, err = pool.ClassName(int(innerIdx))
		if err != nil {
			return nil, err
		}
		if outerIdx != 0 {
			e.OuterName, err = pool.ClassName(int(outerIdx))
			if err != nil {
				return nil, err
			}
		}
		if nameIdx != 0 {
			e.InnerSimpleName, err = pool.UTF8(int(nameIdx))
			if err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// decodeCode decodes a Code attribute's payload:
// max_stack, max_locals, the raw bytecode byte array, the exception table,
// and nested LineNumberTable/LocalVariableTable/LocalVariableTypeTable
// attributes. StackMapTable is recognized but not modeled (the lifter
// recomputes stack shape itself rather than trusting the verifier's map).
func decodeCode(payload []byte, pool *constpool.Pool, opts Options) (*Code, error) {
	r := reader.New(payload)
	maxStack, err := r.U2()
	if err != nil {
		return nil, err
	}
	maxLocals, err := r.U2()
	if err != nil {
		return nil, err
	}
	codeLength, err := r.U4()
	if err != nil {
		return nil, err
	}
	codeBytes, err := r.Bytes(int(codeLength))
	if err != nil {
		return nil, err
	}

	c := &Code{MaxStack: int(maxStack), MaxLocals: int(maxLocals), Bytes: codeBytes}

	excCount, err := r.U2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(excCount); i++ {
		startPC, err := r.U2()
		if err != nil {
			return nil, err
		}
		endPC, err := r.U2()
		if err != nil {
			return nil, err
		}
		handlerPC, err := r.U2()
		if err != nil {
			return nil, err
		}
		catchType, err := r.U2()
		if err != nil {
			return nil, err
		}
		c.Exceptions = append(c.Exceptions, ExceptionEntry{
			StartPC: int(startPC), EndPC: int(endPC),
			HandlerPC: int(handlerPC), CatchType: int(catchType),
		})
	}

	attrCount, err := r.U2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(attrCount); i++ {
		name, nestedPayload, err := readRawAttribute(r, pool)
		if err != nil {
			return nil, err
		}
		switch name {
		case "LineNumberTable":
			entries, err := decodeLineNumberTable(nestedPayload)
			if err != nil {
				return nil, err
			}
			c.LineNumbers = append(c.LineNumbers, entries...)
		case "LocalVariableTable":
			entries, err := decodeLocalVariableTable(nestedPayload, pool)
			if err != nil {
				return nil, err
			}
			c.LocalVars = append(c.LocalVars, entries...)
		case "LocalVariableTypeTable":
			entries, err := decodeLocalVariableTable(nestedPayload, pool)
			if err != nil {
				return nil, err
			}
			c.LocalVarTypes = append(c.LocalVarTypes, entries...)
		case "StackMapTable":
			// Recognized, intentionally not modeled (see doc comment above).
		default:
			// Unknown nested attributes inside Code are simply dropped;
			// there is no slot to preserve them in since Code has no
			// Unknown field -- nothing downstream needs them.
		}
	}

	return c, nil
}

func decodeLineNumberTable(payload []byte) ([]LineNumberEntry, error) {
	r := reader.New(payload)
	count, err := r.U2()
	if err != nil {
		return nil, err
	}
	entries := make([]LineNumberEntry, 0, count)
	for i := 0; i < int(count); i++ {
		startPC, err := r.U2()
		if err != nil {
			return nil, err
		}
		line, err := r.U2()
		if err != nil {
			return nil, err
		}
		entries = append(entries, LineNumberEntry{StartPC: int(startPC), Line: int(line)})
	}
	return entries, nil
}

func decodeLocalVariableTable(payload []byte, pool *constpool.Pool) ([]LocalVarEntry, error) {
	r := reader.New(payload)
	count, err := r.U2()
	if err != nil {
		return nil, err
	}
	entries := make([]LocalVarEntry, 0, count)
	for i := 0; i < int(count); i++ {
		startPC, err := r.U2()
		if err != nil {
			return nil, err
		}
		length, err := r.U2()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.U2()
		if err != nil {
			return nil, err
		}
		descIdx, err := r.U2()
		if err != nil {
			return nil, err
		}
		slot, err := r.U2()
		if err != nil {
			return nil, err
		}
		name, err := pool.UTF8(int(nameIdx))
		if err != nil {
			return nil, err
		}
		desc, err := pool.UTF8(int(descIdx))
		if err != nil {
			return nil, err
		}
		entries = append(entries, LocalVarEntry{
			StartPC: int(startPC), Length: int(length),
			Name: name, Descriptor: desc, Slot: int(slot),
		})
	}
	return entries, nil
}
