//go:build windows

package backend

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	gdi32                = windows.NewLazySystemDLL("gdi32.dll")
	shell32              = windows.NewLazySystemDLL("shell32.dll")
	procDrawIconEx       = user32.NewProc("DrawIconEx")
	procCreateDIBSection = gdi32.NewProc("CreateDIBSection")
	procExtractIconExW   = shell32.NewProc("ExtractIconExW")
)

// ExtractExecutableIcon renders the icon resource at the given index of a
// .exe or .dll to PNG bytes. Falls back to the shell's per-file icon when
// the resource table yields nothing.
func ExtractExecutableIcon(path string, index int) ([]byte, error) {
	hIcon, err := extractIconHandle(path, index)
	if err != nil && index != 0 {
		hIcon, err = extractIconHandle(path, 0)
	}
	if err != nil {
		hIcon, err = shellFileIcon(path)
	}
	if err != nil {
		return nil, err
	}
	defer win.DestroyIcon(hIcon)

	img, err := iconHandleToImage(hIcon)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding icon: %w", err)
	}
	return buf.Bytes(), nil
}

func extractIconHandle(path string, index int) (win.HICON, error) {
	clean := strings.Trim(path, `"`)
	if clean == "" {
		return 0, fmt.Errorf("empty icon path")
	}
	if !strings.HasPrefix(clean, `\\?\`) && len(clean) > 260 {
		clean = `\\?\` + clean
	}

	pPath, err := syscall.UTF16PtrFromString(clean)
	if err != nil {
		return 0, err
	}

	var largeIcon, smallIcon win.HICON
	ret, _, _ := procExtractIconExW.Call(
		uintptr(unsafe.Pointer(pPath)),
		uintptr(index),
		uintptr(unsafe.Pointer(&largeIcon)),
		uintptr(unsafe.Pointer(&smallIcon)),
		1,
	)
	if ret == 0 || (largeIcon == 0 && smallIcon == 0) {
		return 0, fmt.Errorf("no icon resource at %s index %d", path, index)
	}

	if largeIcon != 0 {
		if smallIcon != 0 {
			win.DestroyIcon(smallIcon)
		}
		return largeIcon, nil
	}
	return smallIcon, nil
}

func shellFileIcon(path string) (win.HICON, error) {
	clean := strings.Trim(path, `"`)
	if clean == "" {
		return 0, fmt.Errorf("empty icon path")
	}

	pPath, err := syscall.UTF16PtrFromString(clean)
	if err != nil {
		return 0, err
	}

	var shfi win.SHFILEINFO
	flags := uint32(win.SHGFI_ICON | win.SHGFI_LARGEICON | win.SHGFI_USEFILEATTRIBUTES)
	ret := win.SHGetFileInfo(pPath, windows.FILE_ATTRIBUTE_NORMAL, &shfi, uint32(unsafe.Sizeof(shfi)), flags)
	if ret == 0 || shfi.HIcon == 0 {
		return 0, fmt.Errorf("shell returned no icon for %s", path)
	}
	return shfi.HIcon, nil
}

// iconHandleToImage draws the icon into a 32-bit DIB section and reads the
// pixels back as an NRGBA image.
func iconHandleToImage(hIcon win.HICON) (image.Image, error) {
	var iconInfo win.ICONINFO
	if !win.GetIconInfo(hIcon, &iconInfo) {
		return nil, fmt.Errorf("GetIconInfo failed")
	}
	defer func() {
		if iconInfo.HbmColor != 0 {
			win.DeleteObject(win.HGDIOBJ(iconInfo.HbmColor))
		}
		if iconInfo.HbmMask != 0 {
			win.DeleteObject(win.HGDIOBJ(iconInfo.HbmMask))
		}
	}()

	width, height := 32, 32
	if iconInfo.HbmColor != 0 {
		var bmp win.BITMAP
		if win.GetObject(win.HGDIOBJ(iconInfo.HbmColor), unsafe.Sizeof(bmp), unsafe.Pointer(&bmp)) != 0 {
			width = int(bmp.BmWidth)
			height = int(bmp.BmHeight)
		}
	}

	hdcScreen := win.GetDC(0)
	if hdcScreen == 0 {
		return nil, fmt.Errorf("GetDC failed")
	}
	defer win.ReleaseDC(0, hdcScreen)

	hdcMem := win.CreateCompatibleDC(hdcScreen)
	if hdcMem == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer win.DeleteDC(hdcMem)

	var bi win.BITMAPINFO
	bi.BmiHeader = win.BITMAPINFOHEADER{
		BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
		BiWidth:       int32(width),
		BiHeight:      int32(-height),
		BiPlanes:      1,
		BiBitCount:    32,
		BiCompression: win.BI_RGB,
	}

	var bitsPtr unsafe.Pointer
	hBitmap, _, callErr := procCreateDIBSection.Call(
		uintptr(hdcMem),
		uintptr(unsafe.Pointer(&bi)),
		uintptr(win.DIB_RGB_COLORS),
		uintptr(unsafe.Pointer(&bitsPtr)),
		0,
		0,
	)
	if hBitmap == 0 {
		return nil, fmt.Errorf("CreateDIBSection failed: %v", callErr)
	}
	defer win.DeleteObject(win.HGDIOBJ(hBitmap))

	oldObj := win.SelectObject(hdcMem, win.HGDIOBJ(hBitmap))
	defer win.SelectObject(hdcMem, oldObj)

	ret, _, _ := procDrawIconEx.Call(
		uintptr(hdcMem),
		0,
		0,
		uintptr(hIcon),
		uintptr(width),
		uintptr(height),
		0,
		0,
		uintptr(win.DI_NORMAL),
	)
	if ret == 0 {
		return nil, fmt.Errorf("DrawIconEx failed")
	}

	// The DIB holds BGRA rows top-down (negative height above).
	raw := unsafe.Slice((*byte)(bitsPtr), width*height*4)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			img.SetNRGBA(x, y, color.NRGBA{R: raw[i+2], G: raw[i+1], B: raw[i], A: raw[i+3]})
		}
	}
	return img, nil
}
