package cohort

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `id,meld,saps_ii,age,platelets,hcc,cvvhd,vhf,death_90d,survival_time
p1,25,45,60,65,1,0,1,1,12
p2,14,30,48,120,0,0,0,0,90
p3,NA,50,55,70,1,NA,0,1,33
`

func TestFromCSV(t *testing.T) {
	co, err := FromCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Equal(t, 3, co.Len())

	first := co.At(0)
	assert.Equal(t, "p1", first.ID)
	require.NotNil(t, first.MELD)
	assert.Equal(t, 25.0, *first.MELD)
	require.NotNil(t, first.HCC)
	assert.True(t, *first.HCC)
	assert.Equal(t, 1, first.Outcome)
	assert.Equal(t, 12.0, first.Time)

	// NA markers become absent values, not zeros.
	third := co.At(2)
	assert.Nil(t, third.MELD)
	assert.Nil(t, third.CVVHD)
	require.NotNil(t, third.SAPSII)
	assert.Equal(t, 50.0, *third.SAPSII)
}

func TestFromCSVHeaderIsCaseInsensitive(t *testing.T) {
	data := `ID,MELD,SAPS_II,Age,Platelets,HCC,CVVHD,VHF,Death_90d,Survival_Time
p1,25,45,60,65,1,0,1,1,12
`
	co, err := FromCSV(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, co.Len())
}

func TestFromCSVOptionalIDColumn(t *testing.T) {
	data := `meld,saps_ii,age,platelets,hcc,cvvhd,vhf,death_90d,survival_time
25,45,60,65,1,0,1,1,12
`
	co, err := FromCSV(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "", co.At(0).ID)
}

func TestFromCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "missing required column",
			data: "id,meld,saps_ii,age,platelets,hcc,cvvhd,vhf,death_90d\np1,25,45,60,65,1,0,1,1\n",
		},
		{
			name: "non-numeric continuous value",
			data: "meld,saps_ii,age,platelets,hcc,cvvhd,vhf,death_90d,survival_time\nhigh,45,60,65,1,0,1,1,12\n",
		},
		{
			name: "non-boolean flag value",
			data: "meld,saps_ii,age,platelets,hcc,cvvhd,vhf,death_90d,survival_time\n25,45,60,65,maybe,0,1,1,12\n",
		},
		{
			name: "missing outcome",
			data: "meld,saps_ii,age,platelets,hcc,cvvhd,vhf,death_90d,survival_time\n25,45,60,65,1,0,1,NA,12\n",
		},
		{
			name: "missing survival time",
			data: "meld,saps_ii,age,platelets,hcc,cvvhd,vhf,death_90d,survival_time\n25,45,60,65,1,0,1,1,\n",
		},
		{
			name: "empty input",
			data: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromCSV(strings.NewReader(tt.data))
			assert.Error(t, err)
		})
	}
}
