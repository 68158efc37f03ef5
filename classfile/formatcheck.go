/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import "jdecomp/jerrors"

// FormatCheck validates access-flag legality and other structural rules
// that survive a successful Parse but still make the class file malformed
// per the JVM specification. Grounded on kittylyst-jacobin's
// formatCheckClass/validateConstantPool/validateFields, narrowed here to
// the access-flag legality matrix and name/descriptor sanity since Parse
// itself already rejects invalid UTF-8 at decode time and bounds- and
// kind-checks every pool index it resolves, unlike jacobin's loader; pool
// entries that nothing resolves are not cross-checked.
func FormatCheck(f *File) []jerrors.Diagnostic {
	var diags []jerrors.Diagnostic

	diags = append(diags, checkClassFlags(f)...)
	for i := range f.Fields {
		diags = append(diags, checkFieldFlags(&f.Fields[i], i)...)
	}
	for i := range f.Methods {
		diags = append(diags, checkMethodFlags(&f.Methods[i], i)...)
	}
	return diags
}

func checkClassFlags(f *File) []jerrors.Diagnostic {
	var diags []jerrors.Diagnostic
	flags := f.AccessFlags

	if flags&AccInterface != 0 && flags&AccAbstract == 0 {
		diags = append(diags, warn("class %q is ACC_INTERFACE but not ACC_ABSTRACT", f.ThisClass))
	}
	if flags&AccInterface != 0 && flags&(AccFinal|AccEnum) != 0 {
		diags = append(diags, warn("interface %q must not be ACC_FINAL or ACC_ENUM", f.ThisClass))
	}
	if flags&AccAnnotation != 0 && flags&AccInterface == 0 {
		diags = append(diags, warn("class %q is ACC_ANNOTATION but not ACC_INTERFACE", f.ThisClass))
	}
	if flags&AccFinal != 0 && flags&AccAbstract != 0 {
		diags = append(diags, warn("class %q is both ACC_FINAL and ACC_ABSTRACT", f.ThisClass))
	}
	if f.ThisClass != "java/lang/Object" && f.SuperClass == "" && flags&AccInterface == 0 {
		diags = append(diags, warn("class %q has no superclass but is not java/lang/Object", f.ThisClass))
	}
	return diags
}

func checkFieldFlags(field *Field, i int) []jerrors.Diagnostic {
	var diags []jerrors.Diagnostic
	flags := field.AccessFlags

	if exclusivityViolation(flags) {
		diags = append(diags, warn("field #%d %q has more than one of ACC_PUBLIC/ACC_PRIVATE/ACC_PROTECTED", i, field.Name))
	}
	if flags&AccFinal != 0 && flags&AccVolatile != 0 {
		diags = append(diags, warn("field #%d %q is both ACC_FINAL and ACC_VOLATILE", i, field.Name))
	}
	if field.Name == "" {
		diags = append(diags, warn("field #%d has an empty name", i))
	}
	if len(field.Name) > 0 && field.Name[0] >= '0' && field.Name[0] <= '9' {
		diags = append(diags, warn("field #%d %q starts with a digit", i, field.Name))
	}
	if c := firstByteOrZero(field.Descriptor); !isFieldDescriptorStart(c) {
		diags = append(diags, warn("field #%d %q has an invalid descriptor %q", i, field.Name, field.Descriptor))
	}
	return diags
}

func checkMethodFlags(m *Method, i int) []jerrors.Diagnostic {
	var diags []jerrors.Diagnostic
	flags := m.AccessFlags

	if exclusivityViolation(flags) {
		diags = append(diags, warn("method #%d %q has more than one of ACC_PUBLIC/ACC_PRIVATE/ACC_PROTECTED", i, m.Name))
	}
	if flags&AccAbstract != 0 && flags&(AccFinal|AccNative|AccPrivate|AccStatic|AccSynchronized|AccStrict) != 0 {
		diags = append(diags, warn("method #%d %q is ACC_ABSTRACT but also carries a mutually exclusive flag", i, m.Name))
	}
	if flags&AccAbstract != 0 && m.Code != nil {
		diags = append(diags, warn("method #%d %q is ACC_ABSTRACT but has a Code attribute", i, m.Name))
	}
	if flags&AccAbstract == 0 && flags&AccNative == 0 && m.Code == nil {
		diags = append(diags, warn("method #%d %q is neither abstract nor native but has no Code attribute", i, m.Name))
	}
	if len(m.Name) > 0 && m.Name[0] == '<' && m.Name != "<init>" && m.Name != "<clinit>" {
		diags = append(diags, warn("method #%d has an invalid special name %q", i, m.Name))
	}
	if firstByteOrZero(m.Descriptor) != '(' {
		diags = append(diags, warn("method #%d %q has a malformed descriptor %q", i, m.Name, m.Descriptor))
	}
	return diags
}

func exclusivityViolation(flags int) bool {
	n := 0
	for _, bit := range [...]int{AccPublic, AccPrivate, AccProtected} {
		if flags&bit != 0 {
			n++
		}
	}
	return n > 1
}

func firstByteOrZero(s string) byte {
	if s == "" {
		return 0
	}
	return s[0]
}

func isFieldDescriptorStart(c byte) bool {
	switch c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'L', 'S', 'Z', '[':
		return true
	default:
		return false
	}
}

func warn(format string, args ...any) jerrors.Diagnostic {
	return jerrors.FromError(jerrors.Newf(jerrors.KindStructural, "FormatCheckWarning", format, args...))
}
