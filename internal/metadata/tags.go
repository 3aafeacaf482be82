package metadata

// DICOM tag (group, element) pairs consumed by the builder.
type dcmTag struct {
	group, element uint16
}

var (
	tagPatientName      = dcmTag{0x0010, 0x0010}
	tagPatientID        = dcmTag{0x0010, 0x0020}
	tagPatientBirthDate = dcmTag{0x0010, 0x0030}
	tagPatientAge       = dcmTag{0x0010, 0x1010}

	tagStudyID          = dcmTag{0x0020, 0x0010}
	tagStudyInstanceUID = dcmTag{0x0020, 0x000D}
	tagStudyDate        = dcmTag{0x0008, 0x0020}
	tagStudyDescription = dcmTag{0x0008, 0x1030}

	tagModality          = dcmTag{0x0008, 0x0060}
	tagSeriesNumber      = dcmTag{0x0020, 0x0011}
	tagSeriesDescription = dcmTag{0x0008, 0x103E}
	tagSeriesInstanceUID = dcmTag{0x0020, 0x000E}
	tagSeriesDate        = dcmTag{0x0008, 0x0021}

	tagSOPInstanceUID = dcmTag{0x0008, 0x0018}
	tagSOPClassUID    = dcmTag{0x0008, 0x0016}
	tagRows           = dcmTag{0x0028, 0x0010}
	tagColumns        = dcmTag{0x0028, 0x0011}

	tagWindowCenter     = dcmTag{0x0028, 0x1050}
	tagWindowWidth      = dcmTag{0x0028, 0x1051}
	tagRescaleIntercept = dcmTag{0x0028, 0x1052}
	tagRescaleSlope     = dcmTag{0x0028, 0x1053}

	tagSliceLocation     = dcmTag{0x0020, 0x1041}
	tagAcquisitionNumber = dcmTag{0x0020, 0x0012}
	tagInstanceNumber    = dcmTag{0x0020, 0x0013}
	tagNumberOfFrames    = dcmTag{0x0028, 0x0008}
	tagFrameOfReference  = dcmTag{0x0020, 0x0052}

	tagPixelSpacing       = dcmTag{0x0028, 0x0030}
	tagImagerPixelSpacing = dcmTag{0x0018, 0x1164}

	tagImagePositionPatient    = dcmTag{0x0020, 0x0032}
	tagImageOrientationPatient = dcmTag{0x0020, 0x0037}

	tagSamplesPerPixel     = dcmTag{0x0028, 0x0002}
	tagPhotometric         = dcmTag{0x0028, 0x0004}
	tagPlanarConfiguration = dcmTag{0x0028, 0x0006}
	tagBitsAllocated       = dcmTag{0x0028, 0x0100}
	tagPixelRepresentation = dcmTag{0x0028, 0x0103}
)
