package imaging

// XRayLabels are the conditions the chest X-ray classifier can detect
// (DenseNet121 label set).
var XRayLabels = []string{
	"Atelectasis", "Cardiomegaly", "Consolidation", "Edema", "Effusion",
	"Emphysema", "Fibrosis", "Hernia", "Infiltration", "Mass", "Nodule",
	"Pleural_Thickening", "Pneumonia", "Pneumothorax",
}

// labelDiseases maps classifier labels onto disease IDs. Several labels
// collapse onto the same disease; labels absent from the map carry no
// diagnostic signal for the differential and are ignored.
var labelDiseases = map[string]string{
	"Pneumonia":          "D005",
	"Consolidation":      "D005",
	"Infiltration":       "D005",
	"Mass":               "D008",
	"Nodule":             "D008",
	"Effusion":           "D009",
	"Pleural_Thickening": "D009",
	"Pneumothorax":       "D010",
	"Cardiomegaly":       "D011",
	"Edema":              "D011",
}

// DiseaseForLabel returns the disease ID a classifier label maps to, if any.
func DiseaseForLabel(label string) (string, bool) {
	id, ok := labelDiseases[label]
	return id, ok
}
